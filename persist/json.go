package persist

import (
	"encoding/json"
	"io/ioutil"
	"strings"
)

// SaveJSON writes data to filename as indented JSON, tagged with meta so
// that a later LoadJSON call can confirm it is reading back the kind of
// object it expects. The write is atomic: a crash mid-write never corrupts
// the previous contents of filename.
func SaveJSON(meta Metadata, data interface{}, filename string) error {
	sf, err := NewSafeFile(filename)
	if err != nil {
		return err
	}
	defer sf.Remove()

	enc := json.NewEncoder(sf)
	enc.SetIndent("", "\t")
	envelope := struct {
		Header  string
		Version string
		Data    interface{}
	}{meta.Header, meta.Version, data}
	if err := enc.Encode(envelope); err != nil {
		return err
	}
	return sf.Commit()
}

// LoadJSON reads the JSON object previously written by SaveJSON from
// filename into data, verifying that its header and version match meta.
func LoadJSON(meta Metadata, data interface{}, filename string) error {
	if strings.HasSuffix(filename, tempSuffix) || strings.Contains(filename, tempSuffix) {
		return ErrBadFilenameSuffix
	}

	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}

	var envelope struct {
		Header  string
		Version string
		Data    json.RawMessage
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if envelope.Header != meta.Header {
		return ErrBadHeader
	}
	if envelope.Version != meta.Version {
		return ErrBadVersion
	}
	return json.Unmarshal(envelope.Data, data)
}
