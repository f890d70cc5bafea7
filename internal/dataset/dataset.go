package dataset

// Dataset is an ordered collection of partitions. A partition is an unordered
// sequence of records processed independently by one worker. Every record
// belongs to exactly one partition at any point in the pipeline.
//
// Datasets are derived, read-only artifacts of a single join invocation;
// operations return new datasets rather than mutating inputs.
type Dataset struct {
	parts [][]Record
}

// New creates a dataset from explicit partitions.
func New(parts ...[]Record) Dataset {
	return Dataset{parts: parts}
}

// Empty returns a dataset with the given number of empty partitions.
func Empty(numPartitions int) Dataset {
	if numPartitions < 1 {
		numPartitions = 1
	}
	return Dataset{parts: make([][]Record, numPartitions)}
}

// FromRecords distributes records round-robin over numPartitions partitions.
func FromRecords(records []Record, numPartitions int) Dataset {
	if numPartitions < 1 {
		numPartitions = 1
	}
	parts := make([][]Record, numPartitions)
	for i, rec := range records {
		p := i % numPartitions
		parts[p] = append(parts[p], rec)
	}
	return Dataset{parts: parts}
}

// Partitions returns the underlying partitions. Callers must treat them as
// read-only.
func (d Dataset) Partitions() [][]Record {
	return d.parts
}

// Partition returns partition i.
func (d Dataset) Partition(i int) []Record {
	return d.parts[i]
}

// NumPartitions returns the partition count.
func (d Dataset) NumPartitions() int {
	return len(d.parts)
}

// Len returns the total record count across all partitions.
func (d Dataset) Len() int {
	total := 0
	for _, p := range d.parts {
		total += len(p)
	}
	return total
}

// Records flattens the dataset into a single slice. Intended for small
// datasets and tests; partition boundaries are lost.
func (d Dataset) Records() []Record {
	out := make([]Record, 0, d.Len())
	for _, p := range d.parts {
		out = append(out, p...)
	}
	return out
}

// EstimatedBytes approximates the dataset's in-memory footprint, used for the
// broadcast-budget strategy decision.
func (d Dataset) EstimatedBytes() int64 {
	var total int64
	for _, p := range d.parts {
		for _, rec := range p {
			total += rec.EstimatedBytes()
		}
	}
	return total
}
