package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"NewsDigest/internal/domain"
)

func TestValidateEmails(t *testing.T) {
	t.Parallel()

	got := ValidateEmails("a@b.com, not-an-email, c@d.org", nil)
	if want := []string{"a@b.com", "c@d.org"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected recipients: %v", got)
	}

	if got := ValidateEmails(" , ", nil); len(got) != 0 {
		t.Fatalf("expected no recipients, got %v", got)
	}
}

func TestEmailList(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.set("email", domain.Row{"type", "list"}, domain.Row{"GCP", "a@b.com, c@d.org"}, domain.Row{"Testing", "me@x.io"})

	list, err := EmailList(context.Background(), store, "email", "testing")
	if err != nil {
		t.Fatalf("EmailList returned error: %v", err)
	}
	if list != "me@x.io" {
		t.Fatalf("unexpected list: %q", list)
	}

	_, err = EmailList(context.Background(), store, "email", "GWS")
	if !errors.Is(err, domain.ErrColumnNotFound) {
		t.Fatalf("expected missing list error, got %v", err)
	}

	_, err = EmailList(context.Background(), store, "missing", "GCP")
	if !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected missing table error, got %v", err)
	}
}
