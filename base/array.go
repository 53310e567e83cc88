package base

const batchSize = 1024 * 1024

// Integers stores int32 in chunks to avoid big allocations while the
// feedback stream grows.
type Integers struct {
	Data [][]int32
}

func (i *Integers) Len() int {
	if len(i.Data) == 0 {
		return 0
	}
	return len(i.Data)*batchSize - batchSize + len(i.Data[len(i.Data)-1])
}

func (i *Integers) Get(index int) int32 {
	return i.Data[index/batchSize][index%batchSize]
}

func (i *Integers) Append(val int32) {
	if len(i.Data) == 0 || len(i.Data[len(i.Data)-1]) == batchSize {
		i.Data = append(i.Data, make([]int32, 0, batchSize))
	}
	i.Data[len(i.Data)-1] = append(i.Data[len(i.Data)-1], val)
}

// Floats stores float32 in chunks, one value per feedback row.
type Floats struct {
	Data [][]float32
}

func (f *Floats) Len() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data)*batchSize - batchSize + len(f.Data[len(f.Data)-1])
}

func (f *Floats) Get(index int) float32 {
	return f.Data[index/batchSize][index%batchSize]
}

func (f *Floats) Append(val float32) {
	if len(f.Data) == 0 || len(f.Data[len(f.Data)-1]) == batchSize {
		f.Data = append(f.Data, make([]float32, 0, batchSize))
	}
	f.Data[len(f.Data)-1] = append(f.Data[len(f.Data)-1], val)
}
