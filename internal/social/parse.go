package social

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
)

// MarkerTag must appear in a post for it to be treated as a launch request.
const MarkerTag = "!pumpbot"

var (
	codeBlockPattern = regexp.MustCompile("```json\\s*\\n([\\s\\S]*?)\\n```")
	addressPattern   = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
	imageHosts      = []string{"iili.io", "imgur.com", "arweave.net"}
)

const (
	maxNameLength        = 50
	maxSymbolLength      = 10
	maxDescriptionLength = 500
)

// TokenData is the launch request embedded in a post.
type TokenData struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Wallet      string `json:"wallet"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
}

// ExtractTokenData finds the marker tag and parses the first fenced json block.
func ExtractTokenData(content string) (*TokenData, error) {
	if !strings.Contains(content, MarkerTag) {
		return nil, invalidFormat()
	}
	match := codeBlockPattern.FindStringSubmatch(content)
	if match == nil || strings.TrimSpace(match[1]) == "" {
		return nil, invalidFormat()
	}

	var data TokenData
	if err := json.Unmarshal([]byte(match[1]), &data); err != nil {
		return nil, invalidFormat()
	}
	return &data, nil
}

func invalidFormat() *apperr.Error {
	return apperr.Validation("Invalid post format",
		"Post must contain !pumpbot",
		"Post must contain a JSON code block (```json)",
		"JSON must be valid")
}

// Validate reports every problem with d at once.
func (d *TokenData) Validate() error {
	var errs []string

	for _, f := range []struct{ name, value string }{
		{"name", d.Name},
		{"symbol", d.Symbol},
		{"wallet", d.Wallet},
		{"description", d.Description},
		{"image", d.Image},
	} {
		if f.value == "" {
			errs = append(errs, "Missing required field: "+f.name)
		}
	}

	if utf8.RuneCountInString(d.Name) > maxNameLength {
		errs = append(errs, "Token name must be 50 characters or less")
	}
	if d.Symbol != "" {
		if utf8.RuneCountInString(d.Symbol) > maxSymbolLength {
			errs = append(errs, "Token symbol must be 10 characters or less")
		}
		if d.Symbol != strings.ToUpper(d.Symbol) {
			errs = append(errs, "Token symbol must be uppercase")
		}
	}
	if utf8.RuneCountInString(d.Description) > maxDescriptionLength {
		errs = append(errs, "Description must be 500 characters or less")
	}
	if d.Wallet != "" && !addressPattern.MatchString(d.Wallet) {
		errs = append(errs, "Invalid Solana wallet address")
	}
	if d.Image != "" && !isImageURL(d.Image) {
		errs = append(errs, "Invalid image URL - must be a direct link to image file")
	}

	if len(errs) > 0 {
		return apperr.Validation("Invalid token data", errs...)
	}
	return nil
}

func isImageURL(raw string) bool {
	if strings.HasPrefix(raw, "ipfs://") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	host := strings.ToLower(u.Hostname())
	for _, known := range imageHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}
