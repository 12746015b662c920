package normalize

// Key is the pair of identifiers derived from one fragment's text.
//
// DedupKey decides whether two fragments are the same request within a run.
// ArtifactName is the cache file name the audio is stored under.
// Two fragments with distinct DedupKeys may share an ArtifactName; the
// second one then resolves to a cache hit.
type Key struct {
	dedupKey     string
	artifactName string
}

func NewKey(dedupKey, artifactName string) Key {
	return Key{
		dedupKey:     dedupKey,
		artifactName: artifactName,
	}
}

func (k Key) DedupKey() string {
	return k.dedupKey
}

func (k Key) ArtifactName() string {
	return k.artifactName
}
