package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltin_CoversAllWorkers(t *testing.T) {
	reg := Builtin()

	assert.NoError(t, reg.Validate())
	assert.Len(t, reg.Activities, 8)

	expected := []string{
		"welfare-approve-application",
		"welfare-reject-application",
		"welfare-mark-application-paid",
		"welfare-reallocate-reimbursements",
		"welfare-mark-reimbursement-paid",
		"welfare-update-registration-status",
		"welfare-recompute-fund-stats",
		"welfare-send-notification",
	}
	assert.ElementsMatch(t, expected, reg.TaskTypes())
}

func TestFind(t *testing.T) {
	reg := Builtin()

	activity, ok := reg.Find("welfare-mark-application-paid")
	assert.True(t, ok)
	assert.Equal(t, "mark-application-paid", activity.ID)
	assert.Contains(t, activity.ErrorCodes, "NO_ACTIVE_MEMBERS")

	_, ok = reg.Find("unknown-task")
	assert.False(t, ok)
}

func TestValidate_DuplicateTaskType(t *testing.T) {
	reg := &ActivityRegistry{
		Activities: []Activity{
			{ID: "a", TaskType: "welfare-approve-application"},
			{ID: "b", TaskType: "welfare-approve-application"},
		},
	}
	assert.Error(t, reg.Validate())
}

func TestValidate_MissingTaskType(t *testing.T) {
	reg := &ActivityRegistry{
		Activities: []Activity{{ID: "a"}},
	}
	assert.Error(t, reg.Validate())
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	data, err := json.Marshal(Builtin())
	if err != nil {
		t.Fatalf("marshal registry: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	reg, err := LoadRegistry(path)
	assert.NoError(t, err)
	assert.Len(t, reg.Activities, 8)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
