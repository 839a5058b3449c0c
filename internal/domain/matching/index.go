package matching

// KeyClass identifies which blocking-key form a key string belongs to.
// Lookups are class-scoped so a record's flipped-form entry cannot satisfy an
// exact-form query; presence checks across classes are still available for
// the loose-tier suppression rule.
type KeyClass int

const (
	ClassExact KeyClass = iota
	ClassLoose
	ClassFlippedExact
	ClassFlippedLoose
	ClassNameOnly
	ClassFlippedNameOnly
	ClassNoSuffix
	numKeyClasses
)

// bucketKind tags the CandidateBucket variant.
type bucketKind int

const (
	bucketSingle bucketKind = iota
	bucketMulti
)

// CandidateBucket is the value stored under one blocking key: either a single
// record or an accumulated candidate list, depending on the key's
// specificity. The tag is fixed at insertion; callers only see Records().
type CandidateBucket struct {
	kind bucketKind
	one  PatientRecord
	many []PatientRecord
}

func singleBucket(rec PatientRecord) CandidateBucket {
	return CandidateBucket{kind: bucketSingle, one: rec}
}

func multiBucket(rec PatientRecord) CandidateBucket {
	return CandidateBucket{kind: bucketMulti, many: []PatientRecord{rec}}
}

// Records returns the bucket contents as a list, wrapping the single variant
// in a one-element slice.
func (b CandidateBucket) Records() []PatientRecord {
	if b.kind == bucketSingle {
		return []PatientRecord{b.one}
	}
	return b.many
}

// Len returns the number of candidates in the bucket.
func (b CandidateBucket) Len() int {
	if b.kind == bucketSingle {
		return 1
	}
	return len(b.many)
}

// CandidateIndex maps blocking keys to reference records. It is built once
// per batch from the full reference set and is read-only afterwards.
//
// Collision policy: high-specificity keys (exact, loose, flipped and
// no-suffix forms) keep the first-seen record; the low-specificity name-only
// forms accumulate every colliding record so date similarity can
// disambiguate later.
type CandidateIndex struct {
	buckets [numKeyClasses]map[string]CandidateBucket
	anyKey  map[string]struct{}
	records []PatientRecord
}

// NewCandidateIndex builds the index from the reference set, inserting every
// record under every key it produces.
func NewCandidateIndex(records []PatientRecord) *CandidateIndex {
	idx := &CandidateIndex{
		anyKey:  make(map[string]struct{}, len(records)*4),
		records: make([]PatientRecord, 0, len(records)),
	}
	for class := KeyClass(0); class < numKeyClasses; class++ {
		idx.buckets[class] = make(map[string]CandidateBucket, len(records))
	}
	for _, rec := range records {
		idx.add(rec)
	}
	return idx
}

func (idx *CandidateIndex) add(rec PatientRecord) {
	idx.records = append(idx.records, rec)

	keys := KeysFor(rec)
	idx.insertFirstSeen(ClassExact, keys.Exact, rec)
	idx.insertFirstSeen(ClassLoose, keys.Loose, rec)
	idx.insertFirstSeen(ClassFlippedExact, keys.FlippedExact, rec)
	idx.insertFirstSeen(ClassFlippedLoose, keys.FlippedLoose, rec)
	idx.insertFirstSeen(ClassNoSuffix, keys.NoSuffix, rec)
	idx.accumulate(ClassNameOnly, keys.NameOnly, rec)
	idx.accumulate(ClassFlippedNameOnly, keys.FlippedNameOnly, rec)
}

func (idx *CandidateIndex) insertFirstSeen(class KeyClass, key string, rec PatientRecord) {
	idx.anyKey[key] = struct{}{}
	if _, exists := idx.buckets[class][key]; exists {
		return
	}
	idx.buckets[class][key] = singleBucket(rec)
}

func (idx *CandidateIndex) accumulate(class KeyClass, key string, rec PatientRecord) {
	idx.anyKey[key] = struct{}{}
	bucket, exists := idx.buckets[class][key]
	if !exists {
		idx.buckets[class][key] = multiBucket(rec)
		return
	}
	bucket.many = append(bucket.many, rec)
	idx.buckets[class][key] = bucket
}

// Lookup returns the candidates stored under a key in one class, possibly
// empty.
func (idx *CandidateIndex) Lookup(class KeyClass, key string) []PatientRecord {
	bucket, ok := idx.buckets[class][key]
	if !ok {
		return nil
	}
	return bucket.Records()
}

// Has reports whether any record is stored under the key in the given class.
func (idx *CandidateIndex) Has(class KeyClass, key string) bool {
	_, ok := idx.buckets[class][key]
	return ok
}

// HasKey reports whether the key string exists under any class. The loose
// tiers use this to stand down when an exact-form entry exists anywhere in
// the index, even one produced by an unrelated record's colliding key.
func (idx *CandidateIndex) HasKey(key string) bool {
	_, ok := idx.anyKey[key]
	return ok
}

// Records returns all reference records in insertion order. The partial-match
// tiers scan this list, so insertion order fixes the first-fit tie-break.
func (idx *CandidateIndex) Records() []PatientRecord {
	return idx.records
}

// Size returns the number of reference records indexed.
func (idx *CandidateIndex) Size() int {
	return len(idx.records)
}
