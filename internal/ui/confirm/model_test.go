package confirm

import "testing"

func TestAskActivates(t *testing.T) {
	m := New(80)
	if m.Active() {
		t.Fatal("new model should be idle")
	}
	*m.answer = true
	m.Ask("purge", "Delete?", "", "Yes")
	if !m.Active() {
		t.Error("Ask should open a form")
	}
	if *m.answer {
		t.Error("Ask should reset the answer")
	}
	if m.tag != "purge" {
		t.Errorf("tag = %q", m.tag)
	}
}
