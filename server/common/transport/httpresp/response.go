package httpresp

const (
	ErrInvalidCredential = "invalid credential"
	ErrInvalidLogin      = "invalid username or password"
	ErrForbidden         = "forbidden"
	ErrPayloadTooLarge   = "uploaded file exceeds the size limit"
	ErrUnsupportedMedia  = "unsupported file type"
	ErrTooManyRequests   = "too many requests"
	ErrInternal          = "internal server error"
	ErrNoFiles           = "at least one file is required"
)

type ErrorResponse struct {
	Msg string `json:"msg"`
}

// ConversionResponse is the success body of every convert endpoint: the
// public link to the stored result and the object key it was stored under.
type ConversionResponse struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalname"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type SweepResponse struct {
	Deleted int `json:"deleted"`
}

func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Msg: msg}
}

func NewConversionResponse(path, originalName string) ConversionResponse {
	return ConversionResponse{Path: path, OriginalName: originalName}
}

func NewTokenResponse(token string) TokenResponse {
	return TokenResponse{Token: token}
}
