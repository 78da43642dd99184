package enums

import "fmt"

// ContentType classifies a library item.
type ContentType string

const (
	ContentTypeStotra   ContentType = "stotra"
	ContentTypeKavach   ContentType = "kavach"
	ContentTypePDF      ContentType = "pdf"
	ContentTypeVideo    ContentType = "video"
	ContentTypeImage    ContentType = "image"
	ContentTypeGuidance ContentType = "guidance"
)

var validContentTypes = []ContentType{
	ContentTypeStotra,
	ContentTypeKavach,
	ContentTypePDF,
	ContentTypeVideo,
	ContentTypeImage,
	ContentTypeGuidance,
}

// String implements fmt.Stringer.
func (c ContentType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ContentType) IsValid() bool {
	for _, candidate := range validContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentType converts raw input into a ContentType.
func ParseContentType(value string) (ContentType, error) {
	for _, candidate := range validContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content type %q", value)
}
