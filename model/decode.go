package model

import "encoding/json"

// Decode converts a prepared map[string]interface{} document into the
// typed Event struct via a JSON round-trip, converting from the dynamic
// maps the Normalizer/Preparer operate on (vendor payloads are
// heterogeneous) to the typed struct. The consumer's validation, routing,
// and indexing path works on the map form and does not call Decode.
func Decode(doc map[string]interface{}) (*Event, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ToMap renders the event back to a generic document, e.g. for schema
// validation or as the _source of a bulk/index request.
func (e *Event) ToMap() (map[string]interface{}, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
