// Package data loads the inputs of a scoring pass: the asset universe and the
// sentiment index, from files or from the built-in demo universe.
package data

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/domain/market"
)

// Origin identifies where an input came from
type Origin string

const (
	OriginFile Origin = "file"
	OriginDemo Origin = "demo"
	OriginFlag Origin = "flag"
)

// Provenance records where and when an input was loaded
type Provenance struct {
	Origin   Origin    `json:"origin"`
	Path     string    `json:"path,omitempty"`
	Checksum string    `json:"checksum,omitempty"` // SHA256 of the file content
	LoadedAt time.Time `json:"loaded_at"`
}

// LoadAssets reads a CoinGecko /coins/markets shaped JSON array
func LoadAssets(path string) ([]market.Asset, Provenance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Provenance{}, fmt.Errorf("failed to read assets file %s: %w", path, err)
	}

	var assets []market.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, Provenance{}, fmt.Errorf("failed to parse assets file %s: %w", path, err)
	}

	prov := fileProvenance(path, raw)
	log.Debug().
		Str("path", path).
		Int("assets", len(assets)).
		Str("checksum", prov.Checksum[:12]).
		Msg("Assets loaded")

	return assets, prov, nil
}

// fngPayload is the alternative.me /fng/ response
type fngPayload struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
	} `json:"data"`
}

// plainSentiment accepts the value as a number or a numeric string
type plainSentiment struct {
	Value          json.RawMessage `json:"value"`
	Classification string          `json:"classification"`
}

// LoadSentiment reads the fear and greed index. Both the alternative.me
// payload and a plain {"value":..,"classification":..} object are accepted.
// A file that cannot be read or understood yields the neutral index.
func LoadSentiment(path string) (market.Sentiment, Provenance) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Sentiment unavailable, using neutral")
		return market.NeutralSentiment(), Provenance{Origin: OriginDemo, LoadedAt: time.Now().UTC()}
	}

	prov := fileProvenance(path, raw)
	sent, err := ParseSentiment(raw)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Sentiment unparseable, using neutral")
		return market.NeutralSentiment(), prov
	}
	return sent, prov
}

// ParseSentiment decodes either supported sentiment payload
func ParseSentiment(raw []byte) (market.Sentiment, error) {
	var fng fngPayload
	if err := json.Unmarshal(raw, &fng); err == nil && len(fng.Data) > 0 {
		v, err := strconv.Atoi(fng.Data[0].Value)
		if err != nil {
			return market.Sentiment{}, fmt.Errorf("invalid index value %q: %w", fng.Data[0].Value, err)
		}
		return market.Sentiment{Value: v, Classification: fng.Data[0].ValueClassification}.Clamped(), nil
	}

	var plain plainSentiment
	if err := json.Unmarshal(raw, &plain); err != nil {
		return market.Sentiment{}, fmt.Errorf("unrecognised sentiment payload: %w", err)
	}
	if len(plain.Value) == 0 {
		return market.Sentiment{}, fmt.Errorf("sentiment payload has no value")
	}

	v, err := parseIndexValue(plain.Value)
	if err != nil {
		return market.Sentiment{}, err
	}
	return market.Sentiment{Value: v, Classification: plain.Classification}.Clamped(), nil
}

// SentimentFromValue builds an index from a bare number, e.g. a CLI flag
func SentimentFromValue(v int) market.Sentiment {
	return market.Sentiment{Value: v}.Clamped()
}

func parseIndexValue(raw json.RawMessage) (int, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid index value %q: %w", s, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("invalid index value %s", string(raw))
}

func fileProvenance(path string, raw []byte) Provenance {
	sum := sha256.Sum256(raw)
	return Provenance{
		Origin:   OriginFile,
		Path:     path,
		Checksum: hex.EncodeToString(sum[:]),
		LoadedAt: time.Now().UTC(),
	}
}
