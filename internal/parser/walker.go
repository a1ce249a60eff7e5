package parser

import (
	"mime"
	"strings"

	"github.com/vdavid/replydesk/internal/models"
)

// ExtractBestText walks the part tree depth-first and returns the first non-empty
// text/plain body. HTML is converted and used only when the whole tree has no
// text/plain part. Returns "" when nothing is decodable.
func ExtractBestText(root models.Part) string {
	plain, htmlFallback := walkParts(root)
	if plain != "" {
		return plain
	}
	return htmlFallback
}

// ExtractBody is ExtractBestText plus the last-resort read of a single-part root
// whose MIME type is neither text/plain nor text/html.
func ExtractBody(msg *models.RawMessage) string {
	if msg == nil || msg.Root == nil {
		return ""
	}

	if text := ExtractBestText(msg.Root); text != "" {
		return text
	}

	leaf, ok := msg.Root.(*models.Leaf)
	if !ok || leaf.Data == "" {
		return ""
	}
	return decodeLeaf(leaf)
}

func walkParts(p models.Part) (plain, htmlFallback string) {
	switch node := p.(type) {
	case *models.Container:
		for _, child := range node.Children {
			childPlain, childHTML := walkParts(child)
			if childPlain != "" {
				return childPlain, ""
			}
			if htmlFallback == "" {
				htmlFallback = childHTML
			}
		}
		return "", htmlFallback
	case *models.Leaf:
		if isAttachment(node.Headers) {
			return "", ""
		}
		switch mediaType(node.MimeType) {
		case "text/plain":
			text := decodeLeaf(node)
			if strings.TrimSpace(text) == "" {
				return "", ""
			}
			return text, ""
		case "text/html":
			return "", decodeLeaf(node)
		}
	}
	return "", ""
}

func decodeLeaf(leaf *models.Leaf) string {
	cte, _ := models.HeaderValue(leaf.Headers, "Content-Transfer-Encoding")
	contentType, ok := models.HeaderValue(leaf.Headers, "Content-Type")
	if !ok {
		contentType = leaf.MimeType
	}

	text := DecodeText(DecodeTransportBody(leaf.Data, cte), contentType)
	if mediaType(leaf.MimeType) == "text/html" {
		return HTMLToText(text)
	}
	return text
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.ToLower(mt)
}

func isAttachment(headers []models.Header) bool {
	disposition, ok := models.HeaderValue(headers, "Content-Disposition")
	if !ok {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment")
}
