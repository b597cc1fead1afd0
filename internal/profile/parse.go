package profile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/model"
	"gopkg.in/yaml.v3"
)

// Spec is a validated conversion profile: the knobs for the emitted test
// plan that a collection itself cannot express.
type Spec struct {
	Version int

	PlanName      string
	Threads       int
	RampTime      int
	Loops         int
	OnSampleError string
}

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

type rawProfile struct {
	Version int     `yaml:"version"`
	Plan    rawPlan `yaml:"plan"`
}

type rawPlan struct {
	Name          string `yaml:"name"`
	Threads       *int   `yaml:"threads"`
	RampTime      *int   `yaml:"ramp_time"`
	Loops         *int   `yaml:"loops"`
	OnSampleError string `yaml:"on_sample_error"`
}

// Default returns the profile used when the caller provides none: one
// thread, one loop, continue on sampler error.
func Default() *Spec {
	return &Spec{
		Version:       1,
		Threads:       1,
		RampTime:      1,
		Loops:         1,
		OnSampleError: "continue",
	}
}

// ParseProfileYAML parses and validates a conversion profile document.
// Unknown fields and multi-document YAML are rejected.
func ParseProfileYAML(source string, content string) (*Spec, error) {
	var rp rawProfile
	if err := yamlDecodeStrict(content, &rp); err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "PROFILE_PARSE_ERROR",
				Message: "profile YAML 解析失败",
				Stage:   "parse_profile",
				Source:  source,
				Snippet: truncateSnippet(content, 200),
			},
			Cause: err,
		}
	}

	if rp.Version != 1 {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "PROFILE_VALIDATE_ERROR",
				Message: "profile version 必须为 1",
				Stage:   "parse_profile",
				Source:  source,
			},
		}
	}

	spec := Default()
	spec.PlanName = strings.TrimSpace(rp.Plan.Name)

	if rp.Plan.Threads != nil {
		if *rp.Plan.Threads <= 0 {
			return nil, validateError(source, "plan.threads 必须为正整数")
		}
		spec.Threads = *rp.Plan.Threads
	}
	if rp.Plan.RampTime != nil {
		if *rp.Plan.RampTime < 0 {
			return nil, validateError(source, "plan.ramp_time 不能为负数")
		}
		spec.RampTime = *rp.Plan.RampTime
	}
	if rp.Plan.Loops != nil {
		if *rp.Plan.Loops <= 0 {
			return nil, validateError(source, "plan.loops 必须为正整数")
		}
		spec.Loops = *rp.Plan.Loops
	}
	if s := strings.TrimSpace(rp.Plan.OnSampleError); s != "" {
		switch s {
		case "continue", "startnextloop", "stopthread", "stoptest":
			spec.OnSampleError = s
		default:
			return nil, &ParseError{
				AppError: model.AppError{
					Code:    "PROFILE_VALIDATE_ERROR",
					Message: fmt.Sprintf("不支持的 on_sample_error：%s", s),
					Stage:   "parse_profile",
					Source:  source,
					Hint:    "expected: continue | startnextloop | stopthread | stoptest",
				},
			}
		}
	}

	return spec, nil
}

func validateError(source, message string) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    "PROFILE_VALIDATE_ERROR",
			Message: message,
			Stage:   "parse_profile",
			Source:  source,
		},
	}
}

func yamlDecodeStrict(content string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}

	// Reject multi-document YAML to keep behavior deterministic.
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple YAML documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
