package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintStruct writes data to w as indented JSON.
func PrintStruct(w io.Writer, data interface{}) {
	dataJson, _ := json.MarshalIndent(data, "", "  ")
	fmt.Fprintf(w, "%s\n", dataJson)
}
