package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"toolhub/server/common/transport/httpresp"
	"toolhub/server/toolhub/domain"
)

const ctxUpload = "upload"

// form fields are tool parameters, not payloads; cap them well below the
// file budget
const maxFieldBytes = 1 << 20

// UploadGate parses the multipart body fully into memory under the size
// policy of the already-resolved caller identity. It runs before any
// handler, so oversized or wrongly typed uploads never reach a transform.
func UploadGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := domain.PolicyFor(Identity(c).Role)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxBytes)

		reader, err := c.Request.MultipartReader()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpresp.NewErrorResponse("multipart body is required"))
			return
		}

		upload := domain.Upload{Fields: url.Values{}}
		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				abortUploadError(c, err)
				return
			}

			if part.FileName() == "" {
				value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
				part.Close()
				if err != nil {
					abortUploadError(c, err)
					return
				}
				// a truncated parameter could pass validation as a
				// different value, so oversize fields are rejected outright
				if len(value) > maxFieldBytes {
					c.AbortWithStatusJSON(http.StatusBadRequest, httpresp.NewErrorResponse("form field "+part.FormName()+" is too large"))
					return
				}
				upload.Fields.Add(part.FormName(), string(value))
				continue
			}

			contentType := part.Header.Get("Content-Type")
			if !policy.Allows(contentType) {
				part.Close()
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, httpresp.NewErrorResponse(httpresp.ErrUnsupportedMedia))
				return
			}

			var buf bytes.Buffer
			_, err = io.Copy(&buf, part)
			part.Close()
			if err != nil {
				abortUploadError(c, err)
				return
			}
			upload.Files = append(upload.Files, domain.UploadedFile{
				Name:        part.FileName(),
				ContentType: contentType,
				SizeBytes:   int64(buf.Len()),
				Content:     buf.Bytes(),
			})
		}

		c.Set(ctxUpload, upload)
		c.Next()
	}
}

// UploadFrom returns the parsed multipart payload placed by UploadGate.
func UploadFrom(c *gin.Context) (domain.Upload, bool) {
	raw, ok := c.Get(ctxUpload)
	if !ok {
		return domain.Upload{}, false
	}
	upload, ok := raw.(domain.Upload)
	return upload, ok
}

func abortUploadError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(httpresp.ErrPayloadTooLarge))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, httpresp.NewErrorResponse("malformed multipart body"))
}
