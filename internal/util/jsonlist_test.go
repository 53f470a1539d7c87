package util

import (
	"reflect"
	"testing"
)

func TestStringsJSONRoundTrip(t *testing.T) {
	items := []string{"REALTOR", "MLS"}
	got := JSONToStrings(StringsToJSON(items))
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("JSONToStrings(StringsToJSON()) = %v, want %v", got, items)
	}
}

func TestJSONToStringsMalformed(t *testing.T) {
	for _, in := range []string{"", "null", "{", `"x"`} {
		if got := JSONToStrings(in); got == nil || len(got) != 0 {
			t.Fatalf("JSONToStrings(%q) = %v, want empty", in, got)
		}
	}
}

func TestLikeContainsEscapes(t *testing.T) {
	if got := LikeContains("50%_off"); got != `%50\%\_off%` {
		t.Fatalf("LikeContains = %q", got)
	}
}
