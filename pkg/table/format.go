package table

import (
	"sort"
	"strings"
)

type Task struct {
	Name       string
	Status     string
	Attributes map[string]string
}

type List struct {
	Name  string
	Tasks []Task
}

type Folder struct {
	Name  string
	Lists []List
}

// Format flattens the folder hierarchy into sheet rows. Tasks inside a list
// are sorted by lower-cased name; the diff is order sensitive, so unsorted
// input would show up as spurious changes between runs.
func Format(folders []Folder, attrColumns []string) Table {
	header := append(append([]string(nil), BaseHeader...), attrColumns...)
	t := Table{HeaderRow(header...)}

	for _, f := range folders {
		t = append(t, FolderRow(f.Name))
		for _, l := range f.Lists {
			t = append(t, ListRow(f.Name, l.Name))

			tasks := append([]Task(nil), l.Tasks...)
			sort.SliceStable(tasks, func(i, j int) bool {
				return strings.ToLower(tasks[i].Name) < strings.ToLower(tasks[j].Name)
			})
			for _, task := range tasks {
				attrs := make([]string, len(attrColumns))
				for i, col := range attrColumns {
					attrs[i] = task.Attributes[col]
				}
				t = append(t, ItemRow(f.Name, l.Name, task.Name, task.Status, attrs...))
			}
		}
	}
	return t
}
