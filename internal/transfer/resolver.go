package transfer

import (
	"os"
	"path/filepath"
	"strings"
)

// remoteFS is the subset of remote filesystem operations the Resolver
// needs to validate target semantics before any worker starts.
type remoteFS interface {
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	ReadDir(path string) ([]os.FileInfo, error)
}

// splitAliasPath splits "alias:path" into its two parts. It assumes the
// caller has already confirmed isRemoteSpec(s).
func splitAliasPath(s string) (alias, path string) {
	idx := strings.Index(s, ":")
	return s[:idx], s[idx+1:]
}

// classifyEndpoint resolves a single raw CLI argument to an Endpoint,
// looking up an alias prefix against registry when the syntax implies a
// remote path.
func classifyEndpoint(raw string, registry AliasRegistry) (Endpoint, error) {
	if !isRemoteSpec(raw) {
		return Endpoint{Remote: false, Path: raw}, nil
	}
	alias, path := splitAliasPath(raw)
	if _, ok := registry.Lookup(alias); !ok {
		return Endpoint{}, NewTransferError(AliasNotFound, "alias not found: "+alias, WithAlias(alias))
	}
	return Endpoint{Remote: true, Alias: alias, Path: path}, nil
}

// normalizeLocalTarget prepends "./" to a relative local target path that
// doesn't already start with "./" or "../", so a bare relative name never
// resolves to the filesystem root by accident.
func normalizeLocalTarget(path string) string {
	if path == "." {
		return "."
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return path
	}
	return "./" + path
}

// extractGlobPredicate detects a final-segment wildcard in path. It
// returns ok=false if path has no wildcard, and an error if the wildcard
// appears in a non-final segment.
func extractGlobPredicate(path string) (pred GlobPredicate, ok bool, err error) {
	if isDisallowedGlobUsage(path) {
		return GlobPredicate{}, false, NewTransferError(UnsupportedGlobUsage, "wildcard only allowed in the final path segment: "+path, WithPattern(path))
	}
	norm := strings.ReplaceAll(path, "\\", "/")
	idx := strings.LastIndex(norm, "/")
	dir, base := "", norm
	if idx >= 0 {
		dir, base = norm[:idx], norm[idx+1:]
	}
	if !hasWildcard(base) {
		return GlobPredicate{}, false, nil
	}
	if dir == "" {
		dir = "."
	}
	return GlobPredicate{Dir: dir, Pattern: base}, true, nil
}

// resolveLocalTargetKind applies the trailing-slash rules of §4.1 against
// the local filesystem.
func resolveLocalTargetKind(path string, sourceCount int) (TargetKind, error) {
	trailingSlash := strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator))
	info, statErr := os.Stat(path)
	exists := statErr == nil

	if trailingSlash {
		if !exists || !info.IsDir() {
			return Ambiguous, NewTransferError(LocalTargetMustBeDir, "target must exist and be a directory: "+path, WithPath(path))
		}
		return ExistingDirectory, nil
	}

	if exists {
		if info.IsDir() {
			return ExistingDirectory, nil
		}
		if sourceCount == 1 {
			return SpecificFile, nil
		}
		return Ambiguous, NewTransferError(LocalTargetMustBeDir, "target is a file but multiple sources given: "+path, WithPath(path))
	}

	parent := filepath.Dir(path)
	parentInfo, err := os.Stat(parent)
	if err != nil || !parentInfo.IsDir() {
		return Ambiguous, NewTransferError(LocalTargetParentMissing, "target parent does not exist: "+parent, WithPath(path))
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return Ambiguous, NewTransferError(CreateLocalDirFailed, "failed to create local target directory: "+path, WithPath(path), WithErr(err))
	}
	return CreatableDirectory, nil
}

// resolveRemoteTargetKind mirrors resolveLocalTargetKind against the
// remote side via an already-connected SFTP client.
func resolveRemoteTargetKind(fs remoteFS, path string, sourceCount int) (TargetKind, error) {
	trailingSlash := strings.HasSuffix(path, "/")
	info, statErr := fs.Stat(path)
	exists := statErr == nil

	if trailingSlash {
		if !exists || !info.IsDir() {
			return Ambiguous, NewTransferError(RemoteTargetMustBeDir, "target must exist and be a directory: "+path, WithPath(path))
		}
		return ExistingDirectory, nil
	}

	if exists {
		if info.IsDir() {
			return ExistingDirectory, nil
		}
		if sourceCount == 1 {
			return SpecificFile, nil
		}
		return Ambiguous, NewTransferError(RemoteTargetMustBeDir, "target is a file but multiple sources given: "+path, WithPath(path))
	}

	parent := filepath.ToSlash(filepath.Dir(path))
	if _, err := fs.Stat(parent); err != nil {
		return Ambiguous, NewTransferError(RemoteTargetParentMissing, "target parent does not exist: "+parent, WithPath(path))
	}
	if err := fs.Mkdir(path); err != nil {
		return Ambiguous, NewTransferError(CreateRemoteDirFailed, "failed to create remote target directory: "+path, WithPath(path), WithErr(err))
	}
	return CreatableDirectory, nil
}

// ResolvePlan implements the Path & Glob Resolver (§4.1). remoteFSFor is
// called at most once, lazily, only if the target or a source is remote,
// to avoid connecting when the run turns out to be invalid on argument
// shape alone.
func ResolvePlan(rawSources []string, rawTarget string, registry AliasRegistry, remoteFSFor func(alias string) (remoteFS, error)) (*Plan, error) {
	targetEp, err := classifyEndpoint(rawTarget, registry)
	if err != nil {
		return nil, err
	}

	sourceEps := make([]Endpoint, len(rawSources))
	for i, raw := range rawSources {
		ep, err := classifyEndpoint(raw, registry)
		if err != nil {
			return nil, err
		}
		sourceEps[i] = ep
	}

	for _, ep := range sourceEps {
		if isDisallowedGlobUsage(ep.Path) {
			return nil, NewTransferError(UnsupportedGlobUsage, "wildcard only allowed in the final path segment: "+ep.Path, WithPattern(ep.Path))
		}
	}

	var direction Direction
	var remoteEndpoint Endpoint

	if targetEp.Remote {
		direction = Upload
		for _, ep := range sourceEps {
			if ep.Remote {
				return nil, NewTransferError(InvalidDirection, "upload sources must all be local")
			}
		}
		remoteEndpoint = targetEp
	} else {
		direction = Download
		remoteCount := 0
		for _, ep := range sourceEps {
			if ep.Remote {
				remoteCount++
				remoteEndpoint = ep
			}
		}
		switch {
		case remoteCount == 0:
			return nil, NewTransferError(InvalidDirection, "exactly one side of the command must be remote")
		case remoteCount > 1 || len(sourceEps) > 1:
			return nil, NewTransferError(DownloadMultipleRemoteSources, "download accepts exactly one remote source")
		}
	}

	aliasEntry, ok := registry.Lookup(remoteEndpoint.Alias)
	if !ok {
		return nil, NewTransferError(AliasNotFound, "alias not found: "+remoteEndpoint.Alias, WithAlias(remoteEndpoint.Alias))
	}

	fs, err := remoteFSFor(remoteEndpoint.Alias)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Direction:   direction,
		RemoteAlias: aliasEntry,
	}

	if direction == Upload {
		sources := make([]string, len(rawSources))
		copy(sources, rawSources)
		plan.Sources = sources

		remotePath := targetEp.Path
		kind, err := resolveRemoteTargetKind(fs, remotePath, len(sources))
		if err != nil {
			return nil, err
		}
		plan.TargetKind = kind
		plan.Target = targetEp
		// RemoteRoot carries no trailing slash; a bare "/" stays "/".
		root := strings.TrimRight(remotePath, "/")
		if root == "" {
			root = remotePath
		}
		plan.RemoteRoot = root
	} else {
		sourcePath := remoteEndpoint.Path
		if pred, ok, err := extractGlobPredicate(sourcePath); err != nil {
			return nil, err
		} else if ok {
			plan.GlobPred = &pred
			entries, err := fs.ReadDir(pred.Dir)
			if err != nil {
				return nil, NewTransferError(OperationFailed, "reading remote directory for glob: "+pred.Dir, WithPath(pred.Dir), WithErr(err))
			}
			matched := false
			for _, entry := range entries {
				if !entry.IsDir() && wildcardMatch(pred.Pattern, entry.Name()) {
					matched = true
					break
				}
			}
			if !matched {
				return nil, NewTransferError(GlobNoMatches, "no remote files matched: "+sourcePath, WithPattern(sourcePath))
			}
		}
		plan.Sources = []string{sourcePath}
		plan.RemoteRoot = sourcePath

		localTarget := normalizeLocalTarget(rawTarget)
		kind, err := resolveLocalTargetKind(localTarget, 1)
		if err != nil {
			return nil, err
		}
		plan.TargetKind = kind
		plan.Target = Endpoint{Remote: false, Path: localTarget}
	}

	return plan, nil
}
