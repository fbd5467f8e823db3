package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Engine          *jsoncEngine  `json:"engine"`
	Session         *jsoncSession `json:"session"`
	SetParams       *jsoncParams  `json:"set_params"`
	RecognizeParams *jsoncParams  `json:"recognize_params"`
	Shell           *jsoncShell   `json:"shell"`
	Log             *jsoncLog     `json:"log"`
	Audio           *jsoncAudio   `json:"audio"`
	DataDir         *string       `json:"data_dir"`
	Debug           *jsoncDebug   `json:"debug"`
}

type jsoncEngine struct {
	Kind          *string `json:"kind"`
	GRPC          *string `json:"grpc"`
	HTTP          *string `json:"http"`
	HealthPath    *string `json:"health_path"`
	Token         *string `json:"token"`
	DialTimeoutMS *int    `json:"dial_timeout_ms"`
	LatencyMS     *int    `json:"latency_ms"`
}

type jsoncSession struct {
	DefaultProfile *string `json:"default_profile"`
	ProfilesFile   *string `json:"profiles_file"`
}

type jsoncParams struct {
	ConfidenceThreshold  *float64 `json:"confidence_threshold"`
	NBestListLength      *int     `json:"n_best_list_length"`
	NoInputTimeoutMS     *int     `json:"no_input_timeout_ms"`
	RecognitionTimeoutMS *int     `json:"recognition_timeout_ms"`
	StartInputTimers     *bool    `json:"start_input_timers"`
}

type jsoncShell struct {
	Prompt       *string `json:"prompt"`
	MaxLineBytes *int    `json:"max_line_bytes"`
}

type jsoncLog struct {
	Priority *int `json:"priority"`
	Output   *int `json:"output"`
}

type jsoncAudio struct {
	Input *string `json:"input"`
}

type jsoncDebug struct {
	GRPCDump *bool `json:"grpc_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if e := payload.Engine; e != nil {
		if e.Kind != nil {
			cfg.Engine.Kind = strings.ToLower(strings.TrimSpace(*e.Kind))
		}
		if e.GRPC != nil {
			cfg.Engine.GRPC = strings.TrimSpace(*e.GRPC)
		}
		if e.HTTP != nil {
			cfg.Engine.HTTP = strings.TrimSpace(*e.HTTP)
		}
		if e.HealthPath != nil {
			cfg.Engine.HealthPath = strings.TrimSpace(*e.HealthPath)
		}
		if e.Token != nil {
			cfg.Engine.Token = *e.Token
		}
		if e.DialTimeoutMS != nil {
			cfg.Engine.DialTimeoutMS = *e.DialTimeoutMS
		}
		if e.LatencyMS != nil {
			cfg.Engine.LatencyMS = *e.LatencyMS
		}
	}

	if s := payload.Session; s != nil {
		if s.DefaultProfile != nil {
			cfg.Session.DefaultProfile = strings.TrimSpace(*s.DefaultProfile)
		}
		if s.ProfilesFile != nil {
			cfg.Session.ProfilesFile = strings.TrimSpace(*s.ProfilesFile)
		}
	}

	payload.SetParams.applyTo(&cfg.SetParams)
	payload.RecognizeParams.applyTo(&cfg.Recognize)

	if s := payload.Shell; s != nil {
		if s.Prompt != nil {
			cfg.Shell.Prompt = *s.Prompt
		}
		if s.MaxLineBytes != nil {
			cfg.Shell.MaxLineBytes = *s.MaxLineBytes
		}
	}

	if l := payload.Log; l != nil {
		if l.Priority != nil {
			cfg.Log.Priority = *l.Priority
		}
		if l.Output != nil {
			cfg.Log.Output = *l.Output
		}
	}

	if payload.Audio != nil && payload.Audio.Input != nil {
		cfg.Audio.Input = strings.TrimSpace(*payload.Audio.Input)
		if cfg.Audio.Input == "" {
			cfg.Audio.Input = "default"
			warnings = append(warnings, Warning{Message: "audio.input is empty; using the default source"})
		}
	}

	if payload.DataDir != nil {
		cfg.DataDir = strings.TrimSpace(*payload.DataDir)
	}

	if payload.Debug != nil && payload.Debug.GRPCDump != nil {
		cfg.Debug.EnableGRPCDump = *payload.Debug.GRPCDump
	}

	return warnings
}

func (p *jsoncParams) applyTo(dst *RecognitionParams) {
	if p == nil {
		return
	}
	if p.ConfidenceThreshold != nil {
		dst.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.NBestListLength != nil {
		dst.NBestListLength = *p.NBestListLength
	}
	if p.NoInputTimeoutMS != nil {
		dst.NoInputTimeoutMS = *p.NoInputTimeoutMS
	}
	if p.RecognitionTimeoutMS != nil {
		dst.RecognitionTimeoutMS = *p.RecognitionTimeoutMS
	}
	if p.StartInputTimers != nil {
		dst.StartInputTimers = *p.StartInputTimers
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
