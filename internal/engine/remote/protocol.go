// Package remote carries the engine contract over gRPC. Messages are
// google.protobuf.Struct values so no generated stubs are needed.
package remote

import (
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "asrclient.v1.Recognizer"

const (
	methodCreateSession  = "/" + ServiceName + "/CreateSession"
	methodRecognizeFile  = "/" + ServiceName + "/RecognizeFile"
	methodDestroySession = "/" + ServiceName + "/DestroySession"
	methodSetLogPriority = "/" + ServiceName + "/SetLogPriority"
)

// Metadata keys.
const (
	headerAuthorization = "authorization"
	headerRequestID     = "x-request-id"
)

// Struct field names.
const (
	fieldProfile           = "profile"
	fieldSessionID         = "session_id"
	fieldGrammarURI        = "grammar_uri"
	fieldGrammarContent    = "grammar_content"
	fieldInputFile         = "input_file"
	fieldAudio             = "audio"
	fieldSendDefineGrammar = "send_define_grammar"
	fieldSendSetParams     = "send_set_params"
	fieldSegments          = "segments"
	fieldCompletionCause   = "completion_cause"
	fieldRequestID         = "request_id"
	fieldPriority          = "priority"
)

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	return s.GetFields()[key].GetBoolValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	if s == nil {
		return 0
	}
	return s.GetFields()[key].GetNumberValue()
}

// resultSegments splits engine text into one segment per non-blank line.
func resultSegments(text string) []any {
	out := []any{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// segmentsField returns the string entries of the segments list. Other
// value kinds are skipped.
func segmentsField(s *structpb.Struct) []string {
	if s == nil {
		return nil
	}
	values := s.GetFields()[fieldSegments].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if text, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			out = append(out, text.StringValue)
		}
	}
	return out
}

// audioField decodes base64 audio. A missing field yields nil so the engine
// falls back to resolving input_file itself.
func audioField(s *structpb.Struct) ([]byte, error) {
	v, ok := s.GetFields()[fieldAudio]
	if !ok {
		return nil, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(v.GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	if pcm == nil {
		pcm = []byte{}
	}
	return pcm, nil
}
