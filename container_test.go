package stfl

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"
)

func TestFileContainerRoundTrip(t *testing.T) {
	SetLogger(t)
	defer SetLogger(nil)

	dir, err := ioutil.TempDir("", "go-stfl-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	s := tinyScheme(t)
	sk, _ := testKeyPair(s, t)
	defer sk.Release()

	ctr, cErr := s.CreateFileContainer(dir+"/key", sk)
	if cErr != nil {
		t.Fatalf("CreateFileContainer: %v", cErr)
	}

	// Sign, persist, reload: the reloaded key continues at the next
	// index.
	if _, err := s.Sign(sk, []byte("msg")); err != nil {
		t.Fatalf("Sign(): %v", err)
	}
	if cErr = ctr.Save(sk); cErr != nil {
		t.Fatalf("Save: %v", cErr)
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}

	// Creating over an existing state file must fail.
	if _, cErr = s.CreateFileContainer(dir+"/key", sk); cErr == nil {
		t.Fatal("creating over an existing container should fail")
	}

	ctr, cErr = s.OpenFileContainer(dir + "/key")
	if cErr != nil {
		t.Fatalf("OpenFileContainer: %v", cErr)
	}
	sk2, cErr := ctr.Load()
	if cErr != nil {
		t.Fatalf("Load: %v", cErr)
	}
	defer sk2.Release()

	if sk2.SeqNo() != 1 {
		t.Fatalf("reloaded key starts at index %d", sk2.SeqNo())
	}
	want, _ := sk.MarshalBinary()
	got, _ := sk2.MarshalBinary()
	if !bytes.Equal(want, got) {
		t.Fatal("key state was stored incorrectly")
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}
}

func TestFileContainerLock(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-stfl-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	s := tinyScheme(t)
	sk, _ := testKeyPair(s, t)
	defer sk.Release()

	ctr, cErr := s.CreateFileContainer(dir+"/key", sk)
	if cErr != nil {
		t.Fatalf("CreateFileContainer: %v", cErr)
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}

	// A lockfile held by another (live) process blocks the container.
	// Pid 1 is always running.
	if err = ioutil.WriteFile(dir+"/key.lock", []byte("1\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, cErr = s.OpenFileContainer(dir + "/key"); cErr == nil {
		t.Fatal("opening a locked container should fail")
	} else if cErr.Kind() != KindLocked {
		t.Fatalf("wrong error kind %v", cErr.Kind())
	}
	if err = os.Remove(dir + "/key.lock"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	// After Close (and with the foreign lock gone) the container opens.
	ctr, cErr = s.OpenFileContainer(dir + "/key")
	if cErr != nil {
		t.Fatalf("OpenFileContainer after Close: %v", cErr)
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}
}

func TestFileContainerCorruption(t *testing.T) {
	dir, err := ioutil.TempDir("", "go-stfl-tests")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	s := tinyScheme(t)
	sk, _ := testKeyPair(s, t)
	defer sk.Release()

	ctr, cErr := s.CreateFileContainer(dir+"/key", sk)
	if cErr != nil {
		t.Fatalf("CreateFileContainer: %v", cErr)
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}

	// Flip a byte in the stored payload.
	data, err := ioutil.ReadFile(dir + "/key")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err = ioutil.WriteFile(dir+"/key", data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctr, cErr = s.OpenFileContainer(dir + "/key")
	if cErr != nil {
		t.Fatalf("OpenFileContainer: %v", cErr)
	}
	if _, cErr = ctr.Load(); cErr == nil {
		t.Fatal("loading a corrupted state file should fail")
	} else if cErr.Kind() != KindMalformedKey {
		t.Fatalf("wrong error kind %v", cErr.Kind())
	}
	if cErr = ctr.Close(); cErr != nil {
		t.Fatalf("Close: %v", cErr)
	}

	// A truncated state file is rejected at open time.
	if err = ioutil.WriteFile(dir+"/key", data[:10], 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, cErr = s.OpenFileContainer(dir + "/key"); cErr == nil {
		t.Fatal("opening a truncated state file should fail")
	} else if cErr.Kind() != KindMalformedKey {
		t.Fatalf("wrong error kind %v", cErr.Kind())
	}
}
