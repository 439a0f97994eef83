package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandeepkv93/taskdesk/internal/taskview"
)

// viewPrefs is the part of the view state that survives restarts.
type viewPrefs struct {
	DaysFilter       *int   `json:"days_filter,omitempty"`
	ContactSortField string `json:"contact_sort_field,omitempty"`
	ContactSortOrder string `json:"contact_sort_order,omitempty"`
}

func prefsFromView(v taskview.ViewState) viewPrefs {
	days := v.DaysFilter
	return viewPrefs{
		DaysFilter:       &days,
		ContactSortField: string(v.ContactSortField),
		ContactSortOrder: string(v.ContactSortOrder),
	}
}

// apply overlays stored values; invalid ones are ignored.
func (p viewPrefs) apply(v taskview.ViewState) taskview.ViewState {
	if p.DaysFilter != nil {
		if next, err := v.SetDaysFilter(*p.DaysFilter); err == nil {
			v = next
		}
	}
	field := taskview.ContactSortField(p.ContactSortField)
	if field.IsValid() {
		v.ContactSortField = field
		switch taskview.SortOrder(p.ContactSortOrder) {
		case taskview.SortAsc, taskview.SortDesc:
			v.ContactSortOrder = taskview.SortOrder(p.ContactSortOrder)
		}
	}
	return v
}

func (m *Model) persistViewPrefs() error {
	return saveViewPrefs(m.cfg.PrefsPath, prefsFromView(m.ViewState))
}

func saveViewPrefs(path string, prefs viewPrefs) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadViewPrefs(path string) (viewPrefs, error) {
	var prefs viewPrefs
	path = strings.TrimSpace(path)
	if path == "" {
		return prefs, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return prefs, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return prefs, nil
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return viewPrefs{}, err
	}
	return prefs, nil
}
