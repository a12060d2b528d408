package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "v0.3.0"
	defer func() { Version = old }()

	if s := String(); !strings.Contains(s, "version: v0.3.0") {
		t.Errorf("String() = %q", s)
	}
	if tpl := Template(); !strings.Contains(tpl, "v0.3.0") || !strings.HasPrefix(tpl, "{{.Name}}") {
		t.Errorf("Template() = %q", tpl)
	}
}

func TestGet(t *testing.T) {
	if info := Get(); info.Version != Version || info.Commit != Commit || info.Date != Date {
		t.Errorf("Get() = %+v", info)
	}
}
