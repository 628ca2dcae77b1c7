package links

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gorm.io/gorm"

	"linktally/internal/config"
)

// ErrCodeGenerationExhausted is returned when the generator cannot find a
// free short code within the configured retry cap.
var ErrCodeGenerationExhausted = errors.New("short code generation exhausted retry budget")

const codeCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// legacyCodeCharset additionally allows an embedded dash; leading and
// trailing dashes are trimmed after the draw.
const legacyCodeCharset = codeCharset + "-"

// GenerateCode draws length characters uniformly from [0-9a-zA-Z].
func GenerateCode(length int) (string, error) {
	return drawCode(codeCharset, length)
}

// GenerateLegacyCode draws from the dash-extended charset and trims dashes
// from both ends, redrawing when the trim empties the code.
func GenerateLegacyCode(length int) (string, error) {
	for {
		code, err := drawCode(legacyCodeCharset, length)
		if err != nil {
			return "", err
		}
		code = strings.Trim(code, "-")
		if code != "" {
			return code, nil
		}
	}
}

// generateCandidate draws a code with the charset the deployment is
// configured for. Installations that imported links minted by the older
// shortener keep its dash-extended charset so old and new codes look alike.
func generateCandidate(cfg *config.Config) (string, error) {
	if cfg.ShortCodeLegacyCharset {
		return GenerateLegacyCode(cfg.ShortCodeLength)
	}
	return GenerateCode(cfg.ShortCodeLength)
}

func drawCode(charset string, length int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random short code: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// shortCodeTaken reports whether another live link already uses the code.
// excludeID skips the link being edited; pass 0 for creation.
func shortCodeTaken(db *gorm.DB, code string, excludeID uint) (bool, error) {
	var count int64
	query := db.Model(&Link{}).Where("short_code = ?", code)
	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check short code uniqueness: %w", err)
	}
	return count > 0, nil
}

// isUniqueViolation reports whether the storage layer rejected a write for
// violating the short_code unique index. Pre-checks alone cannot rule the
// race out under concurrent creation, so the constraint stays the authority.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// assignShortCode picks the short code for a new link and inserts it. A
// requested code that collides falls back to a generated one without
// surfacing an error. Insert conflicts under concurrency retry with a fresh
// code up to the configured cap.
func assignShortCode(db *gorm.DB, link *Link, requested string) error {
	cfg := config.GetConfig()

	candidate := requested
	if candidate != "" {
		taken, err := shortCodeTaken(db, candidate, 0)
		if err != nil {
			return err
		}
		if taken {
			candidate = ""
		}
	}

	for attempt := 0; attempt < cfg.ShortCodeMaxRetries; attempt++ {
		if candidate == "" {
			code, err := generateCandidate(cfg)
			if err != nil {
				return err
			}
			candidate = code
		}

		link.ShortCode = candidate
		err := db.Create(link).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("failed to create link: %w", err)
		}
		candidate = ""
	}

	return ErrCodeGenerationExhausted
}

// SetShortCode changes the short code of an existing link. An empty
// requested code means "generate one"; a requested code colliding with
// another link is silently replaced by a generated code.
func SetShortCode(db *gorm.DB, link *Link, requested string) error {
	cfg := config.GetConfig()

	candidate := requested
	if candidate != "" {
		taken, err := shortCodeTaken(db, candidate, link.ID)
		if err != nil {
			return err
		}
		if taken {
			candidate = ""
		}
	}

	for attempt := 0; attempt < cfg.ShortCodeMaxRetries; attempt++ {
		if candidate == "" {
			code, err := generateCandidate(cfg)
			if err != nil {
				return err
			}
			candidate = code
		}

		link.ShortCode = candidate
		err := db.Save(link).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("failed to update short code: %w", err)
		}
		candidate = ""
	}

	return ErrCodeGenerationExhausted
}
