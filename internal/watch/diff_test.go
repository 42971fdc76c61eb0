package watch

import "testing"

func TestDiff_DetectsAddedRemovedChanged(t *testing.T) {
	prior := Snapshot{
		"settings.json": []byte(`{"env":{"ANTHROPIC_BASE_URL":"https://old","kept":"same"}}`),
	}
	current := Snapshot{
		"settings.json": []byte(`{"env":{"ANTHROPIC_BASE_URL":"https://new","kept":"same","new_field":"x"}}`),
	}

	entries, err := Diff(prior, current)
	if err != nil {
		t.Fatal(err)
	}

	byPath := map[string]DiffKind{}
	for _, e := range entries {
		byPath[e.Path] = e.Kind
	}
	if byPath["settings.json.env.ANTHROPIC_BASE_URL"] != Changed {
		t.Errorf("expected base url change, got %+v", byPath)
	}
	if byPath["settings.json.env.new_field"] != Added {
		t.Errorf("expected new_field added, got %+v", byPath)
	}
	if _, ok := byPath["settings.json.env.kept"]; ok {
		t.Errorf("unchanged field should not appear, got %+v", byPath)
	}
}

func TestDiff_RemovedFile(t *testing.T) {
	prior := Snapshot{"a.json": []byte(`{"x":1}`)}
	current := Snapshot{}

	entries, err := Diff(prior, current)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Kind != Removed || entries[0].Path != "a.json.x" {
		t.Errorf("got %+v", entries)
	}
}

func TestDiff_NoChangesIsEmpty(t *testing.T) {
	snap := Snapshot{"a.json": []byte(`{"x":1}`)}
	entries, err := Diff(snap, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %+v, want none", entries)
	}
}
