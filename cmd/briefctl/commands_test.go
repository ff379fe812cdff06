package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/data/store/memstore"
	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/services"
)

func seededBackend(t *testing.T) (opener, uuid.UUID) {
	t.Helper()
	store := memstore.New(familylock.NewLocal(), familylock.Policy{
		MaxWait: time.Second, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond,
	})
	root := uuid.New()
	second := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.Seed(
		&briefs.BriefVersion{ID: root, RootID: root, VersionNumber: 1, Title: "v1", IsPublished: true, IsActive: true, CreatedAt: base, UpdatedAt: base},
		&briefs.BriefVersion{ID: second, RootID: root, ParentID: &root, VersionNumber: 2, Title: "v2", IsPublished: true, IsActive: true, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)},
	)
	log := logger.Nop()
	b := &backend{
		Briefs:    services.NewBriefVersionService(store, log, nil),
		Reconcile: services.NewReconcileService(store, log, nil, 2),
		Close:     func() {},
	}
	return func() (*backend, error) { return b, nil }, root
}

func execute(open opener, args ...string) (string, error) {
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckThenReconcile(t *testing.T) {
	open, _ := seededBackend(t)

	out, err := execute(open, "check")
	if !errors.Is(err, errViolations) {
		t.Fatalf("check err: want=%v got=%v", errViolations, err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code: want=2 got=%d", exitCode(err))
	}
	var report struct {
		Consistent bool `json:"consistent"`
		Violations []struct {
			Rule string `json:"rule"`
		} `json:"violations"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode check output: %v\n%s", err, out)
	}
	if report.Consistent || len(report.Violations) == 0 {
		t.Fatalf("expected violations, got %s", out)
	}

	out, err = execute(open, "reconcile", "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	var dry map[string]interface{}
	if err := json.Unmarshal([]byte(out), &dry); err != nil {
		t.Fatalf("decode dry run: %v", err)
	}
	if dry["dry_run"] != true {
		t.Fatalf("dry_run: want=true got=%v", dry["dry_run"])
	}
	if _, err := execute(open, "check"); !errors.Is(err, errViolations) {
		t.Fatalf("dry run must not repair, check err=%v", err)
	}

	out, err = execute(open, "reconcile", "--concurrency", "1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	var sum struct {
		FamiliesScanned  int `json:"families_scanned"`
		FamiliesRepaired int `json:"families_repaired"`
	}
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.FamiliesScanned != 1 || sum.FamiliesRepaired != 1 {
		t.Fatalf("summary: want scanned=1 repaired=1 got=%+v", sum)
	}

	if out, err := execute(open, "check"); err != nil {
		t.Fatalf("check after reconcile: %v\n%s", err, out)
	}
}

func TestHistory(t *testing.T) {
	open, root := seededBackend(t)

	out, err := execute(open, "history", root.String())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var versions []briefs.BriefVersion
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(versions) != 2 || versions[0].VersionNumber != 1 || versions[1].VersionNumber != 2 {
		t.Fatalf("history: want versions 1,2 got=%+v", versions)
	}

	if _, err := execute(open, "history", "not-a-uuid"); err == nil {
		t.Fatalf("expected error for a malformed root id")
	}
	if _, err := execute(open, "history"); err == nil {
		t.Fatalf("expected error when the root id is missing")
	}
}
