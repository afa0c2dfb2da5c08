package domain_test

import (
	"testing"

	"reviewdeck/internal/domain"
)

func TestProfileRef_Matches(t *testing.T) {
	cases := []struct {
		ref      string
		id, name string
		want     bool
	}{
		{"11832958934823586542", "11832958934823586542", "Cardamom Restaurant", true},
		{"0042", "42", "Somewhere", true},
		{"42", "0042", "Somewhere", true},
		{"cardamom restaurant", "11832958934823586542", "Cardamom Restaurant", true},
		{"P1", "P1", "", true},
		{"P1", "p2", "Other", false},
		{"43", "42", "Answer", false},
	}
	for _, c := range cases {
		ref := domain.NewProfileRef(c.ref)
		if got := ref.Matches(c.id, c.name); got != c.want {
			t.Errorf("NewProfileRef(%q).Matches(%q, %q) = %v, want %v", c.ref, c.id, c.name, got, c.want)
		}
	}
}

func TestParseProfileRef_AllSelectors(t *testing.T) {
	if domain.ParseProfileRef("") != nil {
		t.Fatal("empty selector should be nil")
	}
	if domain.ParseProfileRef("all") != nil {
		t.Fatal("'all' selector should be nil")
	}
	if domain.ParseProfileRef("ALL") != nil {
		t.Fatal("'ALL' selector should be nil")
	}
	if ref := domain.ParseProfileRef(" P1 "); ref == nil || ref.Raw() != "P1" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestReplyStatus_Derivation(t *testing.T) {
	r := domain.ReviewRecord{ReviewID: "r1", StarRating: domain.StarFive}
	if got := r.ReplyStatus(); got != domain.StatusPending {
		t.Fatalf("no reply: got %s", got)
	}
	r.Reply = &domain.ReviewReply{Comment: ""}
	if got := r.ReplyStatus(); got != domain.StatusPending {
		t.Fatalf("empty reply comment: got %s", got)
	}
	r.Reply.Comment = "Thanks"
	if got := r.ReplyStatus(); got != domain.StatusReplied {
		t.Fatalf("replied: got %s", got)
	}
	if !r.HasReply() {
		t.Fatal("HasReply should be true")
	}
}

func TestStarRating_Numeric(t *testing.T) {
	for s, want := range map[domain.StarRating]int{
		domain.StarOne: 1, domain.StarTwo: 2, domain.StarThree: 3, domain.StarFour: 4, domain.StarFive: 5,
	} {
		n, ok := s.Numeric()
		if !ok || n != want {
			t.Errorf("%s.Numeric() = %d,%v", s, n, ok)
		}
	}
	if _, ok := domain.StarRating("SIX").Numeric(); ok {
		t.Fatal("SIX should be unmapped")
	}
	if n := domain.StarRating("SIX").NumericOrNeutral(); n != 3 {
		t.Fatalf("unmapped neutral = %d, want 3", n)
	}
	if _, ok := domain.ParseStarRating("5"); !ok {
		t.Fatal("numeric form should parse")
	}
}
