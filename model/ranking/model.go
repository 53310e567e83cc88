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
	"io"
	"reflect"

	"github.com/juju/errors"

	"github.com/gorse-io/userknn/base"
	"github.com/gorse-io/userknn/base/encoding"
	"github.com/gorse-io/userknn/model"
)

type Score struct {
	NDCG      float32
	Precision float32
	Recall    float32
}

type FitConfig struct {
	Jobs int
	TopK int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs: 1,
		TopK: 10,
	}
}

func (config *FitConfig) SetJobs(nJobs int) *FitConfig {
	config.Jobs = nJobs
	return config
}

func (config *FitConfig) SetTopK(topK int) *FitConfig {
	config.TopK = topK
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Recommendation is a ranked item for a user.
type Recommendation struct {
	UserId string
	ItemId string
	Score  float32
}

type Model interface {
	model.Model
	// Invalid reports whether the model misses weights and cannot predict.
	Invalid() bool
	// Fit a model with a train set and parameters. The validation set is
	// optional and used to report ranking scores after fitting.
	Fit(trainSet, validateSet *DataSet, config *FitConfig) (Score, error)
	// GetUserIndex returns user index.
	GetUserIndex() base.Index
	// GetItemIndex returns item index.
	GetItemIndex() base.Index
	// Predict the affinity between a user (userId) and an item (itemId).
	Predict(userId, itemId string) float32
	// InternalPredict predicts the affinity between a user index and an item index.
	InternalPredict(userIndex, itemIndex int32) float32
	// Recommend produces a ranked list of unrated items for every predictable user.
	Recommend(nJobs int) []Recommendation
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
}

type BaseRecommender struct {
	model.BaseModel
	UserIndex base.Index
	ItemIndex base.Index
}

func (baseModel *BaseRecommender) Init(trainSet *DataSet) {
	baseModel.UserIndex = trainSet.UserIndex
	baseModel.ItemIndex = trainSet.ItemIndex
}

func (baseModel *BaseRecommender) GetUserIndex() base.Index {
	return baseModel.UserIndex
}

func (baseModel *BaseRecommender) GetItemIndex() base.Index {
	return baseModel.ItemIndex
}

// Marshal model into byte stream.
func (baseModel *BaseRecommender) Marshal(w io.Writer) error {
	// write params
	err := encoding.WriteGob(w, baseModel.Params)
	if err != nil {
		return errors.Trace(err)
	}
	// write user index
	err = base.MarshalIndex(w, baseModel.UserIndex)
	if err != nil {
		return errors.Trace(err)
	}
	// write item index
	return base.MarshalIndex(w, baseModel.ItemIndex)
}

// Unmarshal model from byte stream.
func (baseModel *BaseRecommender) Unmarshal(r io.Reader) error {
	// read params
	err := encoding.ReadGob(r, &baseModel.Params)
	if err != nil {
		return errors.Trace(err)
	}
	// read user index
	baseModel.UserIndex, err = base.UnmarshalIndex(r)
	if err != nil {
		return errors.Trace(err)
	}
	// read item index
	baseModel.ItemIndex, err = base.UnmarshalIndex(r)
	return errors.Trace(err)
}

// Clone a model with deep copy through the model codec.
func Clone(m Model) Model {
	buf := bytes.NewBuffer(nil)
	if err := MarshalModel(buf, m); err != nil {
		panic(err)
	}
	copied, err := UnmarshalModel(buf)
	if err != nil {
		panic(err)
	}
	copied.SetParams(copied.GetParams())
	return copied
}

const ModelUserKNN = "userknn"

func GetModelName(m Model) string {
	switch m.(type) {
	case *UserKNN:
		return ModelUserKNN
	default:
		return reflect.TypeOf(m).String()
	}
}

func MarshalModel(w io.Writer, m Model) error {
	if err := encoding.WriteString(w, GetModelName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func UnmarshalModel(r io.Reader) (Model, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch name {
	case ModelUserKNN:
		var knn UserKNN
		if err := knn.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &knn, nil
	}
	return nil, errors.Errorf("unknown model %v", name)
}
