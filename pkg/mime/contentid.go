package mime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ContentIDDomain is appended to generated content-ids
const ContentIDDomain = "mtom.siros.org"

// NewContentID returns a fresh content-id without brackets.
func NewContentID() string {
	return fmt.Sprintf("%s@%s", uuid.New().String(), ContentIDDomain)
}

// NormalizeContentID removes a cid: prefix and angle brackets
func NormalizeContentID(contentID string) string {
	contentID = strings.TrimPrefix(contentID, "cid:")
	return GetContentIDWithoutBrackets(contentID)
}

// GetContentIDWithoutBrackets removes < and > from Content-ID
func GetContentIDWithoutBrackets(contentID string) string {
	contentID = strings.TrimPrefix(contentID, "<")
	contentID = strings.TrimSuffix(contentID, ">")
	return contentID
}

// AddContentIDBrackets adds < and > to Content-ID if not present
func AddContentIDBrackets(contentID string) string {
	if !strings.HasPrefix(contentID, "<") {
		contentID = "<" + contentID
	}
	if !strings.HasSuffix(contentID, ">") {
		contentID = contentID + ">"
	}
	return contentID
}
