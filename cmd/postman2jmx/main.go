package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emkeyen/postman-to-jmx/internal/collection"
	"github.com/emkeyen/postman-to-jmx/internal/fetch"
	"github.com/emkeyen/postman-to-jmx/internal/jmx"
	"github.com/emkeyen/postman-to-jmx/internal/profile"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postman2jmx <collection.json> <output.jmx>",
		Short: "Convert a Postman v2 collection into a JMeter JMX test plan",
		Long: "postman2jmx converts a Postman v2 collection (local file or http/https URL)\n" +
			"into a JMeter 5.x .jmx test plan: one HTTP sampler per request, headers,\n" +
			"bodies, merged collection/environment variables, and a results listener.",
		Args: cobra.ExactArgs(2),
		RunE: runConvert,
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	cmd.Flags().StringP("environment", "e", "", "Postman environment JSON (file or URL); its variables override collection variables")
	cmd.Flags().StringP("profile", "p", "", "Conversion profile YAML (file or URL): plan name, threads, ramp time, loops")
	cmd.Flags().Bool("strict", false, "Validate the collection against the minimal Postman v2 schema before converting")
	cmd.Flags().Duration("fetch-timeout", 15*time.Second, "Timeout for each remote document fetch")

	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("postman2jmx version %s\n", version))

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthcheckCmd())
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	collectionPath, outputPath := args[0], args[1]
	envPath, _ := cmd.Flags().GetString("environment")
	profilePath, _ := cmd.Flags().GetString("profile")
	strict, _ := cmd.Flags().GetBool("strict")
	fetchTimeout, _ := cmd.Flags().GetDuration("fetch-timeout")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fetchOpt := fetch.Options{Timeout: fetchTimeout}

	colData, err := loadInput(ctx, fetch.KindCollection, collectionPath, fetchOpt)
	if err != nil {
		return err
	}
	if strict {
		if err := collection.ValidateCollection(collectionPath, colData); err != nil {
			return err
		}
	}
	doc, err := collection.ParseCollection(collectionPath, colData)
	if err != nil {
		return err
	}

	var env *collection.Environment
	if envPath != "" {
		envData, err := loadInput(ctx, fetch.KindEnvironment, envPath, fetchOpt)
		if err != nil {
			return err
		}
		env, err = collection.ParseEnvironment(envPath, envData)
		if err != nil {
			return err
		}
	}

	spec := profile.Default()
	if profilePath != "" {
		profData, err := loadInput(ctx, fetch.KindProfile, profilePath, fetchOpt)
		if err != nil {
			return err
		}
		spec, err = profile.ParseProfileYAML(profilePath, string(profData))
		if err != nil {
			return err
		}
	}

	res := collection.Extract(doc, env)
	for _, n := range res.Notices {
		fmt.Fprintf(cmd.ErrOrStderr(), "notice: [%s] %s: %s\n", n.Code, n.Request, n.Message)
	}

	out, err := jmx.Serialize(jmx.Emit(res, spec))
	if err != nil {
		return err
	}
	if err := writeFileAtomic(outputPath, out); err != nil {
		return fmt.Errorf("写入输出文件 %s 失败: %w", outputPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "converted %d request(s) -> %s\n", len(res.Requests), outputPath)
	return nil
}

// loadInput reads one input document from disk, or fetches it when the path
// is an http/https URL.
func loadInput(ctx context.Context, kind fetch.Kind, path string, opt fetch.Options) ([]byte, error) {
	if fetch.IsRemote(path) {
		text, err := fetch.FetchTextWithOptions(ctx, kind, path, opt)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输入文件 %s 失败: %w", path, err)
	}
	return data, nil
}

// writeFileAtomic writes via a temp file in the destination directory plus a
// rename, so a failed conversion never leaves a truncated output behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		return errors.Join(werr, cerr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
