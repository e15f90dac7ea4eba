package metadata

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Format]*gojsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[Format]*gojsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas = make(map[Format]*gojsonschema.Schema)
		for format, file := range map[Format]string{
			GalleryDL: "schemas/gallerydl.json",
			Eze:       "schemas/eze.json",
		} {
			raw, err := schemaFS.ReadFile(file)
			if err != nil {
				schemasErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", file, err)
				return
			}
			schemas[format] = s
		}
	})
	return schemas, schemasErr
}

// decodeValid decodes YAML content into out after checking it against the
// schema of format.
func decodeValid(format Format, content []byte, out any) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	res, err := all[format].Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}

	return yaml.Unmarshal(content, out)
}
