package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvExtractionProvider          = "CLEARCASE_EXTRACTION_PROVIDER"
	EnvExtractionTesseractPath     = "CLEARCASE_EXTRACTION_TESSERACT_PATH"
	EnvExtractionTesseractLanguage = "CLEARCASE_EXTRACTION_TESSERACT_LANGUAGE"
	EnvExtractionRasterDPI         = "CLEARCASE_EXTRACTION_RASTER_DPI"
	EnvExtractionOCRTimeout        = "CLEARCASE_EXTRACTION_OCR_TIMEOUT"
	EnvExtractionCacheTTL          = "CLEARCASE_EXTRACTION_CACHE_TTL"
)

// ExtractionConfig selects the text extraction strategy and configures the
// OCR backend. The provider name is checked when the provider is constructed.
type ExtractionConfig struct {
	Provider          string `toml:"provider"`
	TesseractPath     string `toml:"tesseract_path"`
	TesseractLanguage string `toml:"tesseract_language"`
	RasterDPI         int    `toml:"raster_dpi"`
	OCRTimeout        string `toml:"ocr_timeout"`
	CacheTTL          string `toml:"cache_ttl"`
}

// OCRTimeoutDuration returns OCRTimeout as a time.Duration.
func (c *ExtractionConfig) OCRTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OCRTimeout)
	return d
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *ExtractionConfig) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ExtractionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ExtractionConfig) Merge(overlay *ExtractionConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.TesseractPath != "" {
		c.TesseractPath = overlay.TesseractPath
	}
	if overlay.TesseractLanguage != "" {
		c.TesseractLanguage = overlay.TesseractLanguage
	}
	if overlay.RasterDPI != 0 {
		c.RasterDPI = overlay.RasterDPI
	}
	if overlay.OCRTimeout != "" {
		c.OCRTimeout = overlay.OCRTimeout
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
}

func (c *ExtractionConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "stub"
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.TesseractLanguage == "" {
		c.TesseractLanguage = "eng"
	}
	if c.RasterDPI == 0 {
		c.RasterDPI = 300
	}
	if c.OCRTimeout == "" {
		c.OCRTimeout = "2m"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "10m"
	}
}

func (c *ExtractionConfig) loadEnv() {
	if v := os.Getenv(EnvExtractionProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvExtractionTesseractPath); v != "" {
		c.TesseractPath = v
	}
	if v := os.Getenv(EnvExtractionTesseractLanguage); v != "" {
		c.TesseractLanguage = v
	}
	if v := os.Getenv(EnvExtractionRasterDPI); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RasterDPI = n
		}
	}
	if v := os.Getenv(EnvExtractionOCRTimeout); v != "" {
		c.OCRTimeout = v
	}
	if v := os.Getenv(EnvExtractionCacheTTL); v != "" {
		c.CacheTTL = v
	}
}

func (c *ExtractionConfig) validate() error {
	if c.RasterDPI < 72 || c.RasterDPI > 1200 {
		return fmt.Errorf("raster_dpi out of range: %d", c.RasterDPI)
	}
	if _, err := time.ParseDuration(c.OCRTimeout); err != nil {
		return fmt.Errorf("invalid ocr_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	return nil
}
