package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running service's /healthz and exit 0/1 (container probe)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			u, err := deriveHealthzURL(listen)
			if err != nil {
				return err
			}
			return runHealthcheck(u, timeout)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("listen", "127.0.0.1:25600", "服务监听地址（与 serve --listen 一致）")
	cmd.Flags().Duration("timeout", 2*time.Second, "探测超时")
	return cmd
}

// deriveHealthzURL turns a listen address into a probe URL. Wildcard hosts
// are probed via loopback.
func deriveHealthzURL(listen string) (string, error) {
	s := strings.TrimSpace(listen)
	if s == "" {
		return "", fmt.Errorf("empty listen address")
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", err
		}
		u.Path = "/healthz"
		u.RawQuery = ""
		u.Fragment = ""
		return u.String(), nil
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// A bare port like "25600" is accepted for convenience.
		if !strings.Contains(s, ":") {
			host, port = "", s
		} else {
			return "", err
		}
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/healthz", nil
}

func runHealthcheck(probeURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(probeURL)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, probeURL)
	}
	return nil
}
