package core

import (
	"testing"
	"time"
)

func TestTimestampNormalizer_Normalize(t *testing.T) {
	n, err := NewTimestampNormalizer("")
	if err != nil {
		t.Fatalf("NewTimestampNormalizer: %v", err)
	}
	if n.Location().String() != DefaultTimeZone {
		t.Fatalf("Location() = %s, want %s", n.Location(), DefaultTimeZone)
	}

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "day first in summer time",
			input: "05/08/2019 11:54",
			want:  time.Date(2019, 8, 5, 10, 54, 0, 0, time.UTC),
		},
		{
			name:  "day first in winter",
			input: "01/01/2019 11:00",
			want:  time.Date(2019, 1, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "day first with seconds",
			input: "23/08/2019 21:22:05",
			want:  time.Date(2019, 8, 23, 20, 22, 5, 0, time.UTC),
		},
		{
			name:  "single digit day and month",
			input: "1/3/2019 02:40",
			want:  time.Date(2019, 3, 1, 2, 40, 0, 0, time.UTC),
		},
		{
			name:  "ISO with Z and seven fractional digits",
			input: "2019-03-01T02:40:40.1110000Z",
			want:  time.Date(2019, 3, 1, 2, 40, 40, 111000000, time.UTC),
		},
		{
			name:  "ISO with offset",
			input: "2019-07-01T12:00:00+02:00",
			want:  time.Date(2019, 7, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "ISO without offset is local",
			input: "2019-07-01T12:00:00",
			want:  time.Date(2019, 7, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			input: "  2019-03-01T02:40:40Z ",
			want:  time.Date(2019, 3, 1, 2, 40, 40, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("Normalize(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestTimestampNormalizer_SameInstant(t *testing.T) {
	n, err := NewTimestampNormalizer(DefaultTimeZone)
	if err != nil {
		t.Fatalf("NewTimestampNormalizer: %v", err)
	}

	local, err := n.Normalize("05/08/2019 11:54")
	if err != nil {
		t.Fatal(err)
	}
	iso, err := n.Normalize("2019-08-05T10:54:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if !local.Equal(iso) {
		t.Errorf("%v and %v should be the same instant", local, iso)
	}
}

func TestTimestampNormalizer_OtherZone(t *testing.T) {
	n, err := NewTimestampNormalizer("America/New_York")
	if err != nil {
		t.Fatalf("NewTimestampNormalizer: %v", err)
	}

	got, err := n.Normalize("05/08/2019 11:54")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2019, 8, 5, 15, 54, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTimestampNormalizer_Errors(t *testing.T) {
	if _, err := NewTimestampNormalizer("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}

	n, err := NewTimestampNormalizer("")
	if err != nil {
		t.Fatal(err)
	}
	for _, input := range []string{"", "yesterday", "2019/08/05 11:54", "32/01/2019 10:00", "05/13/2019 10:00"} {
		if _, err := n.Normalize(input); err == nil {
			t.Errorf("Normalize(%q) should fail", input)
		}
	}
}
