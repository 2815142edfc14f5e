package report

import "testing"

func TestParseReportType(t *testing.T) {
	for _, rt := range Types() {
		parsed, ok := ParseReportType(string(rt))
		if !ok || parsed != rt {
			t.Errorf("ParseReportType(%q) = %q, %v", rt, parsed, ok)
		}
	}

	for _, s := range []string{"", "theft", "ROBBERY", "robbery "} {
		if _, ok := ParseReportType(s); ok {
			t.Errorf("ParseReportType(%q) accepted invalid input", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"pending":  StatusPending,
		"approved": StatusApproved,
		"rejected": StatusRejected,
	}
	for s, want := range cases {
		got, ok := ParseStatus(s)
		if !ok || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, ok)
		}
	}

	if _, ok := ParseStatus("deleted"); ok {
		t.Error("ParseStatus accepted unknown status")
	}
}

func TestParseModerationAction(t *testing.T) {
	for _, s := range []string{"approve", "reject", "edit", "request_info"} {
		if _, ok := ParseModerationAction(s); !ok {
			t.Errorf("ParseModerationAction(%q) rejected valid action", s)
		}
	}
	if _, ok := ParseModerationAction("delete"); ok {
		t.Error("ParseModerationAction accepted unknown action")
	}
}

func TestReportUrgent(t *testing.T) {
	tests := []struct {
		name   string
		typ    ReportType
		status Status
		want   bool
	}{
		{"pending robbery", TypeRobbery, StatusPending, true},
		{"pending fire", TypeFire, StatusPending, true},
		{"pending accident", TypeAccident, StatusPending, true},
		{"pending fight", TypeFight, StatusPending, true},
		{"pending noise", TypeNoise, StatusPending, false},
		{"pending lost pet", TypeLostPet, StatusPending, false},
		{"approved fire", TypeFire, StatusApproved, false},
		{"rejected robbery", TypeRobbery, StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Type: tt.typ, Status: tt.status}
			if got := r.Urgent(); got != tt.want {
				t.Errorf("Urgent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportVisible(t *testing.T) {
	approved := &Report{Status: StatusApproved}
	pending := &Report{Status: StatusPending}
	rejected := &Report{Status: StatusRejected}

	if !approved.Visible(false) || !approved.Visible(true) {
		t.Error("approved report should always be visible")
	}
	if pending.Visible(false) {
		t.Error("pending report should be hidden from the default feed")
	}
	if !pending.Visible(true) {
		t.Error("pending report should appear when pending is included")
	}
	if rejected.Visible(false) || rejected.Visible(true) {
		t.Error("rejected report should never be visible")
	}
}

func TestReportClone(t *testing.T) {
	original := pendingReport("Broken streetlight", TypeOther)
	addr := "Calle 12 #34-56"
	original.Address = &addr

	clone := original.Clone()
	*clone.Address = "elsewhere"
	clone.Title = "changed"

	if original.Title != "Broken streetlight" {
		t.Error("Clone shares the title with the original")
	}
	if *original.Address != "Calle 12 #34-56" {
		t.Error("Clone shares pointer fields with the original")
	}
}
