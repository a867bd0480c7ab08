// Package schema holds the versioned JSON Schema documents describing
// taxonomy contribution files, along with the wiring needed to compile them
// and validate candidate documents against them. The documents are JSON
// Schema draft 2020-12 and are embedded into the binary, one directory per
// schema version.
package schema

import (
	"embed"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

//go:embed v1 v2 v3
var schemaFS embed.FS

// Document names present in every schema version directory.
const (
	CompositionalSkills = "compositional_skills.json"
	Knowledge           = "knowledge.json"
	Version             = "version.json"
)

// DocumentNames returns the names of the documents each schema version holds.
func DocumentNames() []string {
	return []string{CompositionalSkills, Knowledge, Version}
}

// Versions returns the sorted list of embedded schema versions.
func Versions() ([]int, error) {
	entries, err := fs.ReadDir(schemaFS, ".")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded schemas")
	}

	var versions []int
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "v") {
			continue
		}
		v, err := strconv.Atoi(entry.Name()[1:])
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)

	if len(versions) == 0 {
		return nil, errors.New("no embedded schema versions found")
	}
	return versions, nil
}

// Latest returns the highest embedded schema version.
func Latest() (int, error) {
	versions, err := Versions()
	if err != nil {
		return 0, err
	}
	return versions[len(versions)-1], nil
}

// Read returns the raw bytes of one embedded schema document.
func Read(version int, name string) ([]byte, error) {
	path := "v" + strconv.Itoa(version) + "/" + name
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema document %s", path)
	}
	return data, nil
}
