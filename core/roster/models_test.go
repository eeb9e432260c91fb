package roster

import "testing"

func TestAvatarInitials(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "two words", in: "Chanda Mwale", want: "CM"},
		{name: "three words", in: "Chanda Bwalya Mwale", want: "CB"},
		{name: "single word", in: "Chanda", want: "CH"},
		{name: "single short word", in: "Bo", want: "BO"},
		{name: "single letter", in: "B", want: "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvatarInitials(tt.in); got != tt.want {
				t.Errorf("AvatarInitials() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntity_RecomputeRate(t *testing.T) {
	tests := []struct {
		name    string
		present int
		total   int
		want    int
	}{
		{name: "never saved", present: 0, total: 0, want: 100},
		{name: "perfect", present: 10, total: 10, want: 100},
		{name: "rounds up", present: 10, total: 11, want: 91},
		{name: "rounds half up", present: 1, total: 8, want: 13},
		{name: "zero present", present: 0, total: 5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entity{PresentCount: tt.present, TotalClasses: tt.total}
			e.RecomputeRate()
			if e.Rate != tt.want {
				t.Errorf("Rate = %d, want %d", e.Rate, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusPresent, StatusAbsent, StatusLate} {
		if !s.Markable() {
			t.Errorf("Markable(%s) = false, want true", s)
		}
	}
	if StatusNone.Markable() {
		t.Error("Markable(none) = true, want false")
	}
	if Status("lol").Markable() {
		t.Error("Markable(lol) = true, want false")
	}

	if !StatusPresent.CountsPresent() || !StatusLate.CountsPresent() {
		t.Error("present and late must count toward the present tally")
	}
	if StatusAbsent.CountsPresent() {
		t.Error("CountsPresent(absent) = true, want false")
	}
}
