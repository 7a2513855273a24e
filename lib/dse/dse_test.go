package dse

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDate(t *testing.T) {
	raw := []byte{0xE4, 0x07, 12, 24, 23, 59, 58, 99}
	d := ParseDate(raw)
	want := Date{2020, 12, 24, 23, 59, 58, 99}
	if d != want {
		t.Fatalf("ParseDate = %+v, want %+v", d, want)
	}
	var out [DateSize]byte
	d.Put(out[:])
	if !bytes.Equal(out[:], raw) {
		t.Errorf("Put = % x, want % x", out, raw)
	}
	tm := time.Date(2021, 3, 4, 5, 6, 7, 890*int(time.Millisecond), time.UTC)
	if got := DateFromTime(tm); got != (Date{2021, 3, 4, 5, 6, 7, 89}) {
		t.Errorf("DateFromTime = %+v", got)
	}
}

func TestFilename(t *testing.T) {
	t.Run("KeepsRawFill", func(t *testing.T) {
		raw := []byte("bgm0004\x00\x00\x00\x00\x00\x00\x00\x00\x00")
		f, err := ParseFilename(raw)
		if err != nil {
			t.Fatal(err)
		}
		if f.Name != "bgm0004" {
			t.Fatalf("Name = %q", f.Name)
		}
		out, err := f.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out[:], raw) {
			t.Errorf("Bytes = % x, want % x", out, raw)
		}
		if !f.Equal(NewFilename("bgm0004")) {
			t.Error("filenames with different fill should be equal")
		}
	})
	t.Run("DefaultFill", func(t *testing.T) {
		out, err := NewFilename("bgm").Bytes()
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{'b', 'g', 'm', 0, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
		if !bytes.Equal(out[:], want) {
			t.Errorf("Bytes = % x, want % x", out, want)
		}
	})
	t.Run("TooLong", func(t *testing.T) {
		_, err := NewFilename("a_name_that_is_too_long").Bytes()
		var re *RangeError
		if !errors.As(err, &re) {
			t.Errorf("err = %v, want RangeError", err)
		}
	})
}

func TestChunk(t *testing.T) {
	body := []byte{1, 2, 3, 4}
	data := AppendChunk([]byte{0xFF}, Tag("kgrp"), body)
	want := []byte{
		0xFF,
		'k', 'g', 'r', 'p', 0, 0, 0x15, 0x04, 0x10, 0, 0, 0, 4, 0, 0, 0,
		1, 2, 3, 4,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("AppendChunk = % x", data)
	}
	got, err := ParseChunk(data, 1, "kgrp")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("ParseChunk = % x", got)
	}

	bad := []struct {
		name string
		edit func(d []byte)
	}{
		{"Tag", func(d []byte) { d[1] = 'x' }},
		{"Reserved", func(d []byte) { d[5] = 1 }},
		{"Version", func(d []byte) { d[7] = 0x16 }},
		{"HeaderSize", func(d []byte) { d[9] = 0x20 }},
		{"Length", func(d []byte) { d[13] = 5 }},
	}
	for _, c := range bad {
		t.Run(c.name, func(t *testing.T) {
			d := append([]byte(nil), data...)
			c.edit(d)
			if _, err := ParseChunk(d, 1, "kgrp"); !errors.Is(err, ErrFormat) {
				t.Errorf("err = %v, want format error", err)
			}
		})
	}
}

func TestTOC(t *testing.T) {
	entries := [][]byte{nil, {0, 0, 1, 0}, nil, {0, 0, 3, 0}}
	body, err := WriteTOC(entries, "wavi")
	if err != nil {
		t.Fatal(err)
	}
	if len(body) != 16+8 {
		t.Fatalf("len = %d, want 24", len(body))
	}
	if !IsFill(body[8:16], PadFill) {
		t.Errorf("TOC padding = % x", body[8:16])
	}
	toc, err := ReadTOC(body, 4, "wavi")
	if err != nil {
		t.Fatal(err)
	}
	wantTOC := []int{0, 16, 0, 20}
	for i, off := range toc {
		if off != wantTOC[i] {
			t.Errorf("toc[%d] = %d, want %d", i, off, wantTOC[i])
		}
	}
	body[6] = 0xFF
	if _, err := ReadTOC(body, 4, "wavi"); !errors.Is(err, ErrFormat) {
		t.Errorf("out of range offset: err = %v, want format error", err)
	}
}

func TestAlign(t *testing.T) {
	for _, c := range []struct{ n, a, want int }{{0, 16, 0}, {1, 16, 16}, {16, 16, 16}, {17, 4, 20}} {
		if got := Align(c.n, c.a); got != c.want {
			t.Errorf("Align(%d, %d) = %d, want %d", c.n, c.a, got, c.want)
		}
	}
}
