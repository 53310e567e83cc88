// Copyright 2021 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ranking

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"

	"github.com/gorse-io/userknn/base/encoding"
)

// WriteRanking writes one line per ranking entry: the user ID, the item ID
// and the score joined by sep. Entries keep their order.
func WriteRanking(w io.Writer, ranking []Recommendation, sep string) error {
	writer := bufio.NewWriter(w)
	for _, r := range ranking {
		_, err := fmt.Fprintf(writer, "%s%s%s%s%s\n",
			r.UserId, sep, r.ItemId, sep, encoding.FormatFloat32(r.Score))
		if err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(writer.Flush())
}

// SaveRanking writes the ranking to a file, creating parent folders if needed.
func SaveRanking(path string, ranking []Recommendation, sep string) error {
	// create parent folder if not exists
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if err = os.MkdirAll(parent, os.ModePerm); err != nil {
			return errors.Trace(err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	return WriteRanking(file, ranking, sep)
}
