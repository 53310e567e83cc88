// Copyright 2024 gorse Project Authors
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

package datautil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func createZip(t *testing.T, dir string, files map[string]string) string {
	zipPath := filepath.Join(dir, "archive.zip")
	zipFile, err := os.Create(zipPath)
	assert.NoError(t, err)
	writer := zip.NewWriter(zipFile)
	for name, content := range files {
		w, err := writer.Create(name)
		assert.NoError(t, err)
		_, err = w.Write([]byte(content))
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())
	assert.NoError(t, zipFile.Close())
	return zipPath
}

func TestUnzip(t *testing.T) {
	temp := t.TempDir()
	zipPath := createZip(t, temp, map[string]string{
		"ml-100k/ua.base": "1\t1\t5\t874965758\n",
		"ml-100k/ua.test": "1\t20\t4\t887431883\n",
	})
	dst := filepath.Join(temp, "dataset")
	fileNames, err := unzip(zipPath, dst)
	assert.NoError(t, err)
	assert.Len(t, fileNames, 2)
	content, err := os.ReadFile(filepath.Join(dst, "ml-100k", "ua.base"))
	assert.NoError(t, err)
	assert.Equal(t, "1\t1\t5\t874965758\n", string(content))
}

func TestUnzipIllegalPath(t *testing.T) {
	temp := t.TempDir()
	zipPath := createZip(t, temp, map[string]string{
		"../escape.txt": "malicious",
	})
	_, err := unzip(zipPath, filepath.Join(temp, "dataset"))
	assert.Error(t, err)
}
