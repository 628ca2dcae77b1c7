package links_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linktally/internal/config"
	"linktally/internal/links"
	"linktally/internal/testsupport"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func TestValidateDestinationURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https url", "https://example.com/page", false},
		{"http url", "http://example.com", false},
		{"url with query", "https://example.com/p?a=1&utm_source=x", false},
		{"surrounding whitespace", "  https://example.com  ", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"relative path", "/docs/intro", true},
		{"missing scheme", "example.com/page", true},
		{"ftp scheme", "ftp://example.com/file", true},
		{"scheme without host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := links.ValidateDestinationURL(tt.input)
			if tt.wantErr {
				var vErr *links.ValidationError
				assert.ErrorAs(t, err, &vErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateLink(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	link, err := links.CreateLink(db, links.CreateLinkInput{
		DestinationURL: "https://example.com/launch",
		Campaign:       "launch",
	})
	require.NoError(t, err)

	assert.NotZero(t, link.ID)
	assert.Equal(t, "https://example.com/launch", link.DestinationURL)
	assert.Equal(t, "launch", link.Campaign)
	assert.Len(t, link.ShortCode, 6)
	assert.Zero(t, link.TotalClicks)
	assert.Zero(t, link.UniqueVisitors)
	assert.Nil(t, link.LastClickedAt)

	for _, r := range link.ShortCode {
		assert.Contains(t, codeAlphabet, string(r))
	}
}

func TestCreateLinkWithRequestedCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	link, err := links.CreateLink(db, links.CreateLinkInput{
		DestinationURL: "https://example.com/custom",
		ShortCode:      "promo1",
	})
	require.NoError(t, err)
	assert.Equal(t, "promo1", link.ShortCode)

	// A second link requesting a taken code gets a generated one instead
	other, err := links.CreateLink(db, links.CreateLinkInput{
		DestinationURL: "https://example.com/other",
		ShortCode:      "promo1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "promo1", other.ShortCode)
	assert.Len(t, other.ShortCode, 6)
}

func TestCreateLinkRejectsBadDestination(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	_, err := links.CreateLink(db, links.CreateLinkInput{DestinationURL: "not a url"})
	var vErr *links.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "destination_url", vErr.Field)
}

func TestGetLinkByShortCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestLink(t, db, "https://example.com/a", "abc123")

	link, err := links.GetLinkByShortCode(db, "abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, link.ID)

	_, err = links.GetLinkByShortCode(db, "nosuch")
	var nfErr *links.LinkNotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestGetLinkByShortCodeIgnoresDeleted(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestLink(t, db, "https://example.com/gone", "gone01")
	require.NoError(t, links.DeleteLink(db, created.ID))

	_, err := links.GetLinkByShortCode(db, "gone01")
	var nfErr *links.LinkNotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestUpdateLink(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestLink(t, db, "https://example.com/old", "upd001")

	newDest := "https://example.com/new"
	newCampaign := "retarget"
	updated, err := links.UpdateLink(db, created.ID, links.UpdateLinkInput{
		DestinationURL: &newDest,
		Campaign:       &newCampaign,
	})
	require.NoError(t, err)
	assert.Equal(t, newDest, updated.DestinationURL)
	assert.Equal(t, newCampaign, updated.Campaign)
	assert.Equal(t, "upd001", updated.ShortCode)

	// Partial update leaves other fields alone
	anotherCampaign := "followup"
	updated, err = links.UpdateLink(db, created.ID, links.UpdateLinkInput{Campaign: &anotherCampaign})
	require.NoError(t, err)
	assert.Equal(t, newDest, updated.DestinationURL)
	assert.Equal(t, "followup", updated.Campaign)
}

func TestUpdateLinkChangesShortCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestLink(t, db, "https://example.com/x", "code01")

	requested := "code02"
	updated, err := links.UpdateLink(db, created.ID, links.UpdateLinkInput{ShortCode: &requested})
	require.NoError(t, err)
	assert.Equal(t, "code02", updated.ShortCode)

	// Old code no longer resolves
	_, err = links.GetLinkByShortCode(db, "code01")
	var nfErr *links.LinkNotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestUpdateLinkNotFound(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	dest := "https://example.com"
	_, err := links.UpdateLink(db, 9999, links.UpdateLinkInput{DestinationURL: &dest})
	var nfErr *links.LinkNotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestDeleteLink(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestLink(t, db, "https://example.com/del", "del001")

	require.NoError(t, links.DeleteLink(db, created.ID))

	var nfErr *links.LinkNotFoundError
	assert.ErrorAs(t, links.DeleteLink(db, created.ID), &nfErr)
	assert.ErrorAs(t, links.DeleteLink(db, 12345), &nfErr)
}

func TestCountActiveLinks(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	a := testsupport.CreateTestLink(t, db, "https://example.com/1", "cnt001")
	testsupport.CreateTestLink(t, db, "https://example.com/2", "cnt002")

	count, err := links.CountActiveLinks(db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, links.DeleteLink(db, a.ID))
	count, err = links.CountActiveLinks(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestShortURL(t *testing.T) {
	link := &links.Link{ShortCode: "abc123"}
	assert.Equal(t, "https://lt.example.com/go/abc123", link.ShortURL("https://lt.example.com"))
	assert.Equal(t, "https://lt.example.com/go/abc123", link.ShortURL("https://lt.example.com/"))
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := links.GenerateCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	// Collisions across 50 draws from 62^6 would point at a broken generator
	assert.Greater(t, len(seen), 45)
}

func TestCreateLinkExhaustsRetryBudget(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	cfg := config.GetConfig()
	origLength := cfg.ShortCodeLength
	origRetries := cfg.ShortCodeMaxRetries
	cfg.ShortCodeLength = 1
	cfg.ShortCodeMaxRetries = 3
	t.Cleanup(func() {
		cfg.ShortCodeLength = origLength
		cfg.ShortCodeMaxRetries = origRetries
	})

	// Occupy the entire single-character code space so every draw collides
	for i, r := range codeAlphabet {
		testsupport.CreateTestLink(t, db,
			fmt.Sprintf("https://example.com/taken/%d", i), string(r))
	}

	_, err := links.CreateLink(db, links.CreateLinkInput{
		DestinationURL: "https://example.com/one-too-many",
	})
	require.ErrorIs(t, err, links.ErrCodeGenerationExhausted)
}

func TestCreateLinkConcurrentCodesDistinct(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			link, err := links.CreateLink(db, links.CreateLinkInput{
				DestinationURL: fmt.Sprintf("https://example.com/burst/%d", n),
			})
			if err != nil {
				t.Errorf("concurrent create %d: %v", n, err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if codes[link.ShortCode] {
				t.Errorf("short code %q issued twice", link.ShortCode)
			}
			codes[link.ShortCode] = true
		}(i)
	}
	wg.Wait()

	assert.Len(t, codes, workers)
}

func TestCreateLinkLegacyCharset(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	cfg := config.GetConfig()
	cfg.ShortCodeLegacyCharset = true
	t.Cleanup(func() { cfg.ShortCodeLegacyCharset = false })

	for i := 0; i < 10; i++ {
		link, err := links.CreateLink(db, links.CreateLinkInput{
			DestinationURL: fmt.Sprintf("https://example.com/legacy/%d", i),
		})
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(link.ShortCode, "-"))
		assert.False(t, strings.HasSuffix(link.ShortCode, "-"))
		for _, r := range link.ShortCode {
			assert.Contains(t, codeAlphabet+"-", string(r))
		}
	}
}

func TestGenerateLegacyCodeTrimsDashes(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := links.GenerateLegacyCode(8)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(code, "-"))
		assert.False(t, strings.HasSuffix(code, "-"))
		assert.NotEmpty(t, code)
	}
}
