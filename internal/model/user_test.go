package model

import "testing"

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Sunday", "Sunday", false},
		{"sunday", "Sunday", false},
		{"Sun", "Sunday", false},
		{"sun", "Sunday", false},
		{" Wed ", "Wednesday", false},
		{"Thursday", "Thursday", false},
		{"Thu", "Thursday", false},
		{"Funday", "", true},
		{"S", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWeekday(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWeekday(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeWeekdays_PreservesOrderDropsDuplicates(t *testing.T) {
	got, err := NormalizeWeekdays([]string{"Mon", "Sunday", "mon", "Fri"})
	if err != nil {
		t.Fatalf("NormalizeWeekdays() error = %v", err)
	}

	want := []string{"Monday", "Sunday", "Friday"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeWeekdays() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeWeekdays()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeWeekdays_RejectsUnknownDay(t *testing.T) {
	if _, err := NormalizeWeekdays([]string{"Monday", "Blursday"}); err == nil {
		t.Fatal("NormalizeWeekdays() should reject unknown day names")
	}
}

func TestParseSubscription(t *testing.T) {
	for _, valid := range []string{"freeTier", "7daysTrial", "monthly", "yearly"} {
		if _, err := ParseSubscription(valid); err != nil {
			t.Errorf("ParseSubscription(%q) error = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "FreeTier", "premium", "free"} {
		if _, err := ParseSubscription(invalid); err == nil {
			t.Errorf("ParseSubscription(%q) should fail", invalid)
		}
	}
}

func TestParseCoverChoice(t *testing.T) {
	for n := 1; n <= 4; n++ {
		if _, err := ParseCoverChoice(n); err != nil {
			t.Errorf("ParseCoverChoice(%d) error = %v", n, err)
		}
	}
	for _, n := range []int{0, 5, -1, 100} {
		if _, err := ParseCoverChoice(n); err == nil {
			t.Errorf("ParseCoverChoice(%d) should fail", n)
		}
	}
}
