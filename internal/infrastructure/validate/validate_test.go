package validate

import (
	"strings"
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		v       Validator
		input   string
		wantErr bool
	}{
		{"required empty", Required(), "  ", true},
		{"required ok", Required(), "x", false},
		{"max length", MaxLength(3), "abcd", true},
		{"between ok", LengthBetween(2, 4), "abc", false},
		{"no spaces", NoSpaces(), "a b", true},
		{"excludes hit", Excludes("-team-"), "room-team-A", true},
		{"excludes miss", Excludes("-team-"), "room-A", false},
		{"one of", OneOf("zap", "zerolog"), "logrus", true},
		{"optional empty", Optional(URL()), "", false},
		{"optional bad", Optional(URL()), "ftp://x", true},
		{"url ok", URL(), "http://judge:2358", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFieldPrefixesName(t *testing.T) {
	err := Field("roomId", Required())("")
	if err == nil || !strings.HasPrefix(err.Error(), "roomId: ") {
		t.Fatalf("err = %v", err)
	}
}

func TestComposeFirstErrorWins(t *testing.T) {
	err := Compose(Required(), MaxLength(1))("")
	if err == nil || err.Error() != "this field is required" {
		t.Fatalf("err = %v", err)
	}
}
