package join

import (
	"context"
	"encoding/binary"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/paveg/skewjoin/internal/dataset"
)

// shuffleParams configures one shuffle (or salted shuffle) join pass.
type shuffleParams struct {
	// fanout is the salt fan-out S. Every build row is replicated S times,
	// once per salt value, so the replicated side covers all salts for every
	// key; each probe row gets exactly one deterministic salt. S = 1 is a
	// plain shuffle join. Larger S spreads a heavy key over more partitions
	// at the price of S-fold replication of the build side.
	fanout        int
	numPartitions int

	emitInner          bool
	emitUnmatchedProbe bool
	probeIsLeft        bool
	buildWidth         int
}

// executeShuffleJoin runs one shuffle join pass: tag both sides with salts,
// repartition on the composite (key, salt), and hash-join co-indexed
// partitions. Output rows carry no salt field.
//
// Completeness depends only on the build side covering every salt value per
// key; the probe-side salt function affects balance, not correctness. Each
// original (probe, build) pair co-locates in exactly one partition, so every
// true match appears exactly once.
func executeShuffleJoin(
	ctx context.Context,
	sub dataset.Substrate,
	probe, build dataset.Dataset,
	probeKey, buildKey dataset.KeyFunc,
	p shuffleParams,
) (dataset.Dataset, error) {
	if p.fanout < 1 {
		p.fanout = 1
	}

	taggedBuild, err := replicateBuildSide(ctx, sub, build, p.fanout)
	if err != nil {
		return dataset.Dataset{}, err
	}

	taggedProbe, err := assignProbeSalts(ctx, sub, probe, p.fanout)
	if err != nil {
		return dataset.Dataset{}, err
	}

	buildHash := taggedHash(buildKey)
	probeHash := taggedHash(probeKey)

	shuffledBuild, err := sub.RepartitionByKey(ctx, taggedBuild, buildHash, p.numPartitions)
	if err != nil {
		return dataset.Dataset{}, err
	}
	shuffledProbe, err := sub.RepartitionByKey(ctx, taggedProbe, probeHash, p.numPartitions)
	if err != nil {
		return dataset.Dataset{}, err
	}

	opts := kernelOpts{
		tagged:             true,
		emitInner:          p.emitInner,
		emitUnmatchedProbe: p.emitUnmatchedProbe,
		probeIsLeft:        p.probeIsLeft,
		buildWidth:         p.buildWidth,
	}
	return sub.ZipPartitions(ctx, shuffledProbe, shuffledBuild,
		func(_ int, probePart, buildPart []dataset.Record) ([]dataset.Record, error) {
			return hashJoinPartition(buildPart, probePart, buildKey, probeKey, opts), nil
		})
}

// replicateBuildSide tags the build side for a salted shuffle: every row is
// replicated once per salt value 0..fanout-1, the salt appended as a trailing
// synthetic field. The replicated side therefore covers every salt for every
// key, which is what makes probe-side salt assignment free to be arbitrary.
func replicateBuildSide(
	ctx context.Context,
	sub dataset.Substrate,
	build dataset.Dataset,
	fanout int,
) (dataset.Dataset, error) {
	return sub.MapPartitions(ctx, build, func(_ int, records []dataset.Record) ([]dataset.Record, error) {
		out := make([]dataset.Record, 0, len(records)*fanout)
		for _, rec := range records {
			for s := 0; s < fanout; s++ {
				tagged := make(dataset.Record, len(rec), len(rec)+1)
				copy(tagged, rec)
				out = append(out, append(tagged, uint32(s)))
			}
		}
		return out, nil
	})
}

// assignProbeSalts tags each probe row with exactly one deterministic salt in
// [0, fanout), derived from the row's (partition, index) position.
func assignProbeSalts(
	ctx context.Context,
	sub dataset.Substrate,
	probe dataset.Dataset,
	fanout int,
) (dataset.Dataset, error) {
	return sub.MapPartitions(ctx, probe, func(part int, records []dataset.Record) ([]dataset.Record, error) {
		out := make([]dataset.Record, 0, len(records))
		for i, rec := range records {
			salt := uint32(rowSaltHash(part, i) % uint64(fanout))
			tagged := make(dataset.Record, len(rec), len(rec)+1)
			copy(tagged, rec)
			out = append(out, append(tagged, salt))
		}
		return out, nil
	})
}

// broadcastParams configures one broadcast join pass.
type broadcastParams struct {
	emitUnmatchedProbe bool
	probeIsLeft        bool
	buildWidth         int
}

// executeBroadcastJoin publishes the small side once and joins every probe
// partition against the read-only copy, avoiding a probe-side shuffle. The
// broadcast side never has unmatched rows emitted, which the strategy
// selector guarantees by construction.
func executeBroadcastJoin(
	ctx context.Context,
	sub dataset.Substrate,
	probe dataset.Dataset,
	probeKey dataset.KeyFunc,
	build dataset.Dataset,
	buildKey dataset.KeyFunc,
	p broadcastParams,
) (dataset.Dataset, error) {
	small, err := sub.Broadcast(ctx, build)
	if err != nil {
		return dataset.Dataset{}, err
	}

	opts := kernelOpts{
		emitInner:          true,
		emitUnmatchedProbe: p.emitUnmatchedProbe,
		probeIsLeft:        p.probeIsLeft,
		buildWidth:         p.buildWidth,
	}
	return sub.MapPartitions(ctx, probe, func(_ int, records []dataset.Record) ([]dataset.Record, error) {
		return hashJoinPartition(small, records, buildKey, probeKey, opts), nil
	})
}

// taggedHash hashes a working record's composite (key, salt) pair. The salt
// is the trailing synthetic field appended during tagging.
func taggedHash(keyFn dataset.KeyFunc) func(dataset.Record) uint64 {
	return func(rec dataset.Record) uint64 {
		orig, salt := untag(rec, true)
		return compositeHash(keyFn(orig), salt)
	}
}

func compositeHash(k dataset.Key, salt uint32) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.Encoded())
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], salt)
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

// rowSaltHash derives the deterministic per-row value used to assign probe
// rows a salt.
func rowSaltHash(partition, row int) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(partition)<<32|uint64(uint32(row)))
	return xxhash.Sum64(buf[:])
}
