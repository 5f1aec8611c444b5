package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrMalformedAction means the reply named a known action but its payload could
// not be used (for example a non-numeric element id).
var ErrMalformedAction = errors.New("malformed action")

const (
	keyClick          = "click"
	keyURL            = "url"
	keyInput          = "input"
	keyKeyboard       = "keyboard"
	keyNavigation     = "navigation"
	keyRecordResponse = "record response"
	keyRecordReachout = "record reachout"
	keyDeleteReachout = "delete reachout"
)

// Parser extracts actions from model replies. The zero value is strict.
type Parser struct {
	// RepairJSON retries a span that fails to decode after running it through
	// jsonrepair (unquoted keys, trailing commas, single quotes).
	RepairJSON bool
}

// Parse uses a strict Parser.
func Parse(reply string) (Action, error) {
	return Parser{}.Parse(reply)
}

// Parse returns the action encoded in reply. Replies without a decodable JSON
// object, or whose object has none of the known keys, are a FinalAnswer
// carrying the full reply. Only the span from the first '{' to the last '}' is
// considered.
func (p Parser) Parse(reply string) (Action, error) {
	span, ok := jsonSpan(reply)
	if !ok {
		return FinalAnswer{Text: reply}, nil
	}

	fields, ok := p.decode(span)
	if !ok {
		return FinalAnswer{Text: reply}, nil
	}

	switch {
	case has(fields, keyClick):
		id, err := parseID(fields[keyClick])
		if err != nil {
			return nil, malformed(keyClick, err)
		}
		return Click{ID: id}, nil

	case has(fields, keyURL):
		var url string
		if err := json.Unmarshal(fields[keyURL], &url); err != nil || strings.TrimSpace(url) == "" {
			return nil, malformed(keyURL, errors.New("url must be a non-empty string"))
		}
		return Navigate{URL: strings.TrimSpace(url)}, nil

	case has(fields, keyInput):
		var payload struct {
			Select json.RawMessage `json:"select"`
			Text   string          `json:"text"`
		}
		if err := json.Unmarshal(fields[keyInput], &payload); err != nil {
			return nil, malformed(keyInput, err)
		}
		id, err := parseID(payload.Select)
		if err != nil {
			return nil, malformed(keyInput, err)
		}
		return Input{ID: id, Text: payload.Text}, nil

	case has(fields, keyKeyboard):
		var key string
		if err := json.Unmarshal(fields[keyKeyboard], &key); err != nil || key == "" {
			return nil, malformed(keyKeyboard, errors.New("key must be a non-empty string"))
		}
		return KeyPress{Key: key}, nil

	case has(fields, keyNavigation):
		var dir string
		if err := json.Unmarshal(fields[keyNavigation], &dir); err != nil {
			return nil, malformed(keyNavigation, err)
		}
		switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
		case Back, Forward, Reload:
			return History{Direction: d}, nil
		default:
			return nil, malformed(keyNavigation, fmt.Errorf("unknown direction %q", dir))
		}

	case has(fields, keyRecordResponse):
		var payload struct {
			Reachout
			Response string `json:"response"`
		}
		if err := json.Unmarshal(fields[keyRecordResponse], &payload); err != nil {
			return nil, malformed(keyRecordResponse, err)
		}
		return RecordResponse{Reachout: payload.Reachout, Response: payload.Response}, nil

	case has(fields, keyRecordReachout):
		r, err := parseReachout(fields[keyRecordReachout])
		if err != nil {
			return nil, malformed(keyRecordReachout, err)
		}
		return RecordReachout{Reachout: r}, nil

	case has(fields, keyDeleteReachout):
		r, err := parseReachout(fields[keyDeleteReachout])
		if err != nil {
			return nil, malformed(keyDeleteReachout, err)
		}
		return DeleteReachout{Reachout: r}, nil
	}

	return FinalAnswer{Text: reply}, nil
}

func (p Parser) decode(span string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err == nil {
		return fields, true
	}
	if !p.RepairJSON {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func jsonSpan(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return reply[start : end+1], true
}

func has(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

// parseID accepts "7", 7 and tag-prefixed forms like "#7".
func parseID(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing element id")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return 0, fmt.Errorf("element id must be a string or number, got %s", raw)
		}
		text = num.String()
	}

	text = strings.TrimLeft(strings.TrimSpace(text), "#@$")
	id, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("element id %q is not an integer", text)
	}
	if id <= 0 {
		return 0, fmt.Errorf("element id %d is not positive", id)
	}
	return id, nil
}

func parseReachout(raw json.RawMessage) (Reachout, error) {
	var r Reachout
	if err := json.Unmarshal(raw, &r); err != nil {
		return Reachout{}, err
	}
	return r, nil
}

func malformed(key string, err error) error {
	return fmt.Errorf("%w: %q: %v", ErrMalformedAction, key, err)
}
