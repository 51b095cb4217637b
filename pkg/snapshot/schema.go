package snapshot

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

var (
	schemaOnce   sync.Once
	schemaJSON   []byte
	schemaErr    error
	schemaLoader gojsonschema.JSONLoader
)

// Schema reflects the JSON schema of a snapshot from the conversation types.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		// Expand definitions inline instead of using $refs
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Anonymous:                 true,
	}
	s := reflector.Reflect(&conversation.Tree{})
	s.Version = draft07
	s.Title = "chatpath conversation tree"
	return s
}

// SchemaJSON returns the indented JSON form of Schema.
func SchemaJSON() ([]byte, error) {
	schemaOnce.Do(func() {
		schemaJSON, schemaErr = json.MarshalIndent(Schema(), "", "  ")
		if schemaErr == nil {
			schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)
		}
	})
	return schemaJSON, schemaErr
}

func validateSchema(data []byte) error {
	if _, err := SchemaJSON(); err != nil {
		return errors.Wrap(err, "could not build snapshot schema")
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(ErrPersistenceFailure, err.Error())
	}
	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}
		return errors.Wrapf(ErrPersistenceFailure, "snapshot does not match schema: %s", strings.Join(descriptions, "; "))
	}
	return nil
}
