package stfl

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash"
	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
	"github.com/nightlyone/lockfile"
)

// Layout of the key state file:
//
//	[magic "STFL" (4)][version (1)][xxhash64 of the payload (8)][payload]
//
// where the payload is the serialized secret key (see
// SecretKey.MarshalBinary).  The file has a fixed size per scheme, which
// lets us keep it mapped and rewrite the state in place after every
// signature.
const (
	containerMagic   = "STFL"
	containerVersion = 1
	containerHdrLen  = 13
)

// A FileContainer holds a secret key's state on the filesystem:
//
//	path/to/key        the state file
//	path/to/key.lock   a lockfile
//
// The lockfile enforces the single-writer model across processes; the
// checksum in the state file catches torn or corrupted writes.
//
// The intended pattern is Save() after every Sign(), before the signature
// leaves the process.
type FileContainer struct {
	sch   *Scheme
	flock lockfile.Lockfile // file lock
	path  string            // absolute path of the state file
	file  *os.File
	m     mmap.MMap
}

// Creates a key state file at the given path, locks it and stores sk in it.
// Fails if the path already exists.
// NOTE Do not forget to Close() the returned container.
func (s *Scheme) CreateFileContainer(path string, sk *SecretKey) (
	*FileContainer, Error) {
	ctr, err := s.lockContainer(path)
	if err != nil {
		return nil, err
	}

	f, fErr := os.OpenFile(ctr.path,
		os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if fErr != nil {
		ctr.unlock()
		return nil, wrapErrorf(KindIO, fErr,
			"Failed to create %s", ctr.path)
	}
	ctr.file = f

	if fErr = f.Truncate(int64(containerHdrLen + s.skBytes)); fErr != nil {
		ctr.closeAll()
		return nil, wrapErrorf(KindIO, fErr,
			"Failed to resize %s", ctr.path)
	}
	if err = ctr.mapFile(); err != nil {
		return nil, err
	}

	copy(ctr.m[:4], containerMagic)
	ctr.m[4] = containerVersion
	if err = ctr.Save(sk); err != nil {
		ctr.Close()
		return nil, err
	}

	log.Logf("created key state file %s", ctr.path)
	return ctr, nil
}

// Opens and locks an existing key state file.
// NOTE Do not forget to Close() the returned container.
func (s *Scheme) OpenFileContainer(path string) (*FileContainer, Error) {
	ctr, err := s.lockContainer(path)
	if err != nil {
		return nil, err
	}

	f, fErr := os.OpenFile(ctr.path, os.O_RDWR, 0600)
	if fErr != nil {
		ctr.unlock()
		return nil, wrapErrorf(KindIO, fErr, "Failed to open %s", ctr.path)
	}
	ctr.file = f

	fi, fErr := f.Stat()
	if fErr != nil {
		ctr.closeAll()
		return nil, wrapErrorf(KindIO, fErr, "Failed to stat %s", ctr.path)
	}
	if fi.Size() != int64(containerHdrLen+s.skBytes) {
		ctr.closeAll()
		return nil, errorf(KindMalformedKey,
			"%s should be %d bytes (instead of %d)",
			ctr.path, containerHdrLen+s.skBytes, fi.Size())
	}
	if err = ctr.mapFile(); err != nil {
		return nil, err
	}

	if string(ctr.m[:4]) != containerMagic || ctr.m[4] != containerVersion {
		ctr.Close()
		return nil, errorf(KindMalformedKey,
			"%s is not a version %d key state file",
			ctr.path, containerVersion)
	}

	return ctr, nil
}

func (s *Scheme) lockContainer(path string) (*FileContainer, Error) {
	ctr := &FileContainer{sch: s}

	var err error
	ctr.path, err = filepath.Abs(path)
	if err != nil {
		return nil, wrapErrorf(KindIO, err,
			"Could not turn %s into an absolute path", path)
	}

	lockFilePath := ctr.path + ".lock"
	ctr.flock, err = lockfile.New(lockFilePath)
	if err != nil {
		return nil, wrapErrorf(KindIO, err,
			"Failed to create lockfile %s", lockFilePath)
	}

	err = ctr.flock.TryLock()
	if err != nil {
		if _, ok := err.(interface{ Temporary() bool }); ok {
			return nil, wrapErrorf(KindLocked, err, "%s is locked", path)
		}
		return nil, wrapErrorf(KindIO, err, "Failed to lock %s", path)
	}

	return ctr, nil
}

func (ctr *FileContainer) mapFile() Error {
	var err error
	ctr.m, err = mmap.Map(ctr.file, mmap.RDWR, 0)
	if err != nil {
		ctr.closeAll()
		return wrapErrorf(KindIO, err, "Failed to mmap %s", ctr.path)
	}
	return nil
}

// Writes the key's current state into the mapped file and flushes it.
func (ctr *FileContainer) Save(sk *SecretKey) Error {
	if ctr.m == nil {
		return errorf(KindIO, "container is closed")
	}
	if sk == nil || sk.sch != ctr.sch {
		return errorf(KindInvalidKey,
			"secret key does not belong to this container's scheme")
	}

	data, mErr := sk.MarshalBinary()
	if mErr != nil {
		if e, ok := mErr.(Error); ok {
			return e
		}
		return wrapErrorf(KindOther, mErr, "Failed to serialize key")
	}

	payload := ctr.m[containerHdrLen:]
	copy(payload, data)
	zeroBytes(data)
	encodeUint64Into(xxhash.Sum64(payload), ctr.m[5:containerHdrLen])

	if fErr := ctr.m.Flush(); fErr != nil {
		return wrapErrorf(KindIO, fErr, "Failed to flush %s", ctr.path)
	}
	return nil
}

// Reads the key state back from the file.
// Fails with a malformed key error if the checksum does not match.
func (ctr *FileContainer) Load() (*SecretKey, Error) {
	if ctr.m == nil {
		return nil, errorf(KindIO, "container is closed")
	}

	payload := ctr.m[containerHdrLen:]
	stored := decodeUint64(ctr.m[5:containerHdrLen])
	if xxhash.Sum64(payload) != stored {
		return nil, errorf(KindMalformedKey,
			"%s: checksum mismatch; state file is corrupted", ctr.path)
	}
	return ctr.sch.ParseSecretKey(payload)
}

// Unmaps and closes the state file and removes the lock.
func (ctr *FileContainer) Close() Error {
	var result *multierror.Error
	if ctr.m != nil {
		if err := ctr.m.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := ctr.m.Unmap(); err != nil {
			result = multierror.Append(result, err)
		}
		ctr.m = nil
	}
	if ctr.file != nil {
		if err := ctr.file.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		ctr.file = nil
	}
	if err := ctr.flock.Unlock(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return wrapErrorf(KindIO, err, "Failed to close %s", ctr.path)
	}
	return nil
}

func (ctr *FileContainer) closeAll() {
	if ctr.file != nil {
		ctr.file.Close()
		ctr.file = nil
	}
	ctr.unlock()
}

func (ctr *FileContainer) unlock() {
	ctr.flock.Unlock()
}
