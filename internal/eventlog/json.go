package eventlog

import "encoding/json"

func marshalLine(rec entryOnDisk) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func unmarshalLine(data []byte, rec *entryOnDisk) error {
	return json.Unmarshal(data, rec)
}
