package model

// Notice codes for lossy conversions. They accumulate alongside the primary
// result and never abort the pipeline.
const (
	NoticeUnsupportedBody = "UNSUPPORTED_BODY_MODE"
	NoticeScript          = "SCRIPT_NOT_CONVERTED"
)

// Notice is one accumulated "this could not be converted" item, surfaced to
// the user after a successful run.
type Notice struct {
	Code    string `json:"code"`
	Request string `json:"request,omitempty"` // display name of the affected request
	Message string `json:"message"`
}
