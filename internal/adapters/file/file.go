package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Fetch returns the content at url, reading it from cachePath when present
// and caching the download there otherwise.
func Fetch(ctx context.Context, url, cachePath string) ([]byte, error) {
	if buf, err := os.ReadFile(cachePath); err == nil {
		log.Debug().Str("path", cachePath).Msg("using cached file")
		return buf, nil
	}

	buf, err := Download(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := writeCache(buf, cachePath); err != nil {
		log.Warn().Err(err).Str("path", cachePath).Msg("could not cache download")
	}

	return buf, nil
}

// Download returns the byte content of a file on a provided URL.
func Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("error creating request %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		err = fmt.Errorf("error reading response %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	log.Debug().Int("bytes", len(buf)).Str("url", url).Msg("downloaded file")

	return buf, nil
}

// writeCache writes through a uniquely named temp file and renames it into
// place so a concurrent reader never sees a partial file.
func writeCache(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating cache directory %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), id.String()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing cache file %w", err)
	}

	return os.Rename(tmp, path)
}
