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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteRanking(t *testing.T) {
	ranking := []Recommendation{
		{UserId: "A", ItemId: "z", Score: 0.5},
		{UserId: "B", ItemId: "y", Score: 0},
	}
	buf := bytes.NewBuffer(nil)
	err := WriteRanking(buf, ranking, "\t")
	assert.NoError(t, err)
	assert.Equal(t, "A\tz\t0.5\nB\ty\t0\n", buf.String())
	// alternative separator
	buf.Reset()
	err = WriteRanking(buf, ranking, ",")
	assert.NoError(t, err)
	assert.Equal(t, "A,z,0.5\nB,y,0\n", buf.String())
}

func TestSaveRanking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "ranking.tsv")
	err := SaveRanking(path, []Recommendation{{UserId: "A", ItemId: "z", Score: 1.5}}, "\t")
	assert.NoError(t, err)
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "A\tz\t1.5\n", string(data))
}
