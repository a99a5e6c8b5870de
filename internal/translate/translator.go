package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"modellion/internal/config"

	"go.uber.org/zap"
)

// Translator turns text from one language into another. Implementations
// never fail for ordinary reasons: a transport error, timeout or empty
// result comes back as ok=false, not as an error.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, bool)
}

// NopTranslator always reports no translation available. Used when no API
// key is configured.
type NopTranslator struct{}

func (NopTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	return "", false
}

type apiTranslator struct {
	cfg    config.TranslateConfig
	client *http.Client
	logger *zap.Logger
}

// New builds a Translator from configuration. Without an API key the
// returned translator degrades to a no-op.
func New(cfg config.TranslateConfig, logger *zap.Logger) Translator {
	if cfg.APIKey == "" {
		logger.Info("No translation API key configured, translations disabled")
		return NopTranslator{}
	}
	return &apiTranslator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type translateRequest struct {
	Model string             `json:"model"`
	Input []translateMessage `json:"input"`
}

type translateMessage struct {
	Role    string             `json:"role"`
	Content []translateContent `json:"content"`
}

type translateContent struct {
	Type               string              `json:"type"`
	Text               string              `json:"text"`
	TranslationOptions *translationOptions `json:"translation_options,omitempty"`
}

type translationOptions struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Translate calls the translation API. All failure modes collapse to
// ok=false so a broken translation service can never fail an import.
func (t *apiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	if text == "" {
		return "", false
	}

	payload := translateRequest{
		Model: t.cfg.Model,
		Input: []translateMessage{{
			Role: "user",
			Content: []translateContent{{
				Type: "input_text",
				Text: text,
				TranslationOptions: &translationOptions{
					SourceLanguage: sourceLang,
					TargetLanguage: targetLang,
				},
			}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		t.logger.Warn("Failed to encode translation request", zap.Error(err))
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		t.logger.Warn("Failed to build translation request", zap.Error(err))
		return "", false
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("Translation request failed", zap.Error(err), zap.String("text", text))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("Translation API returned non-OK status",
			zap.Int("status", resp.StatusCode), zap.String("text", text))
		return "", false
	}

	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.logger.Warn("Failed to decode translation response", zap.Error(err))
		return "", false
	}

	if len(parsed.Output) == 0 || len(parsed.Output[0].Content) == 0 {
		t.logger.Warn("Translation response had no output", zap.String("text", text))
		return "", false
	}

	translated := strings.TrimSpace(parsed.Output[0].Content[0].Text)
	if translated == "" {
		return "", false
	}

	t.logger.Debug("Translated text", zap.String("from", text), zap.String("to", translated))
	return translated, true
}
