// This file is part of armemu.
//
// armemu is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armemu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armemu.  If not, see <https://www.gnu.org/licenses/>.

package logger_test

import (
	"bytes"
	"testing"

	"github.com/cortexm/armemu/logger"
)

func TestLogger(t *testing.T) {
	logger.Clear()
	logger.SetLevel(logger.LevelWarn)

	var buf bytes.Buffer

	logger.Write(&buf)
	if buf.String() != "" {
		t.Fatalf("expected empty log, got %q", buf.String())
	}

	logger.Log(logger.LevelError, "test", "this is a test")
	buf.Reset()
	logger.Write(&buf)
	if buf.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log contents: %q", buf.String())
	}

	logger.Log(logger.LevelWarn, "test2", "this is another test")
	buf.Reset()
	logger.Write(&buf)
	want := "test: this is a test\ntest2: this is another test\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	logger.Tail(&buf, 100)
	if buf.String() != want {
		t.Fatalf("Tail with excess count: got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	logger.Tail(&buf, 1)
	if buf.String() != "test2: this is another test\n" {
		t.Fatalf("Tail(1): got %q", buf.String())
	}

	buf.Reset()
	logger.Tail(&buf, 0)
	if buf.String() != "" {
		t.Fatalf("Tail(0): got %q", buf.String())
	}

	// entries above the current level are discarded
	logger.Clear()
	logger.SetLevel(logger.LevelCalls)
	logger.Log(logger.LevelInstrs, "noisy", "should not appear")
	logger.Log(logger.LevelCalls, "calls", "should appear")
	buf.Reset()
	logger.Write(&buf)
	if buf.String() != "calls: should appear\n" {
		t.Fatalf("level filtering failed: got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]logger.Level{
		"error":   logger.LevelError,
		"warning": logger.LevelWarn,
		"calls":   logger.LevelCalls,
		"instrs":  logger.LevelInstrs,
	}
	for s, want := range cases {
		got, ok := logger.ParseLevel(s)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}

	if _, ok := logger.ParseLevel("bogus"); ok {
		t.Fatalf("ParseLevel(bogus) should fail")
	}
}
