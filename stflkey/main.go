// stflkey manages XMSS[MT] key state files: it creates keys, signs with
// them (persisting the advanced index before the signature is emitted),
// verifies signatures and carves sub-keys for independent signers.
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	stfl "github.com/hashsig/go-stfl"

	"github.com/urfave/cli"
)

func schemeFromFlag(c *cli.Context) (*stfl.Scheme, error) {
	name := c.String("alg")
	s := stfl.NewSchemeFromName(name)
	if s == nil {
		return nil, cli.NewExitError(
			fmt.Sprintf("unknown algorithm %q; see `stflkey algs`", name), 1)
	}
	return s, nil
}

func cmdAlgs(c *cli.Context) error {
	for _, name := range stfl.ListNames() {
		fmt.Printf("%s\n", name)
	}
	return nil
}

func cmdKeygen(c *cli.Context) error {
	s, err := schemeFromFlag(c)
	if err != nil {
		return err
	}

	var sk *stfl.SecretKey
	var pk *stfl.PublicKey
	var kErr stfl.Error
	if max := c.Uint64("max"); max > 0 {
		sk, pk, kErr = s.GenerateKeyPairWithMaximum(max)
	} else {
		sk, pk, kErr = s.GenerateKeyPair()
	}
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer sk.Release()

	ctr, kErr := s.CreateFileContainer(c.String("key"), sk)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer ctr.Close()

	pkBytes, _ := pk.MarshalBinary()
	if err := ioutil.WriteFile(c.String("pub"), pkBytes, 0644); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	total, _ := s.SigsTotal(sk)
	fmt.Printf("%s keypair written; %d signatures available\n",
		s.Name(), total)
	return nil
}

func cmdSign(c *cli.Context) error {
	s, err := schemeFromFlag(c)
	if err != nil {
		return err
	}

	msg, err := ioutil.ReadFile(c.String("in"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctr, kErr := s.OpenFileContainer(c.String("key"))
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer ctr.Close()

	sk, kErr := ctr.Load()
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer sk.Release()

	sig, kErr := s.Sign(sk, msg)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}

	// The advanced index must hit the disk before the signature does.
	if kErr = ctr.Save(sk); kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}

	sigBytes, _ := sig.MarshalBinary()
	if err := ioutil.WriteFile(c.String("out"), sigBytes, 0644); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	rem, _ := s.SigsRemaining(sk)
	fmt.Printf("signed with index %d; %d signatures remain\n",
		sig.SeqNo(), rem)
	return nil
}

func cmdVerify(c *cli.Context) error {
	s, err := schemeFromFlag(c)
	if err != nil {
		return err
	}

	msg, err := ioutil.ReadFile(c.String("in"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	pkBytes, err := ioutil.ReadFile(c.String("pub"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	sigBytes, err := ioutil.ReadFile(c.String("sig"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	pk, kErr := s.ParsePublicKey(pkBytes)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	sig, kErr := s.ParseSignature(sigBytes)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}

	ok, kErr := s.Verify(pk, sig, msg)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	if !ok {
		return cli.NewExitError("signature is NOT valid", 1)
	}
	fmt.Printf("signature is valid (index %d)\n", sig.SeqNo())
	return nil
}

func cmdDerive(c *cli.Context) error {
	s, err := schemeFromFlag(c)
	if err != nil {
		return err
	}

	ctr, kErr := s.OpenFileContainer(c.String("key"))
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer ctr.Close()

	master, kErr := ctr.Load()
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer master.Release()

	sub, kErr := master.DeriveSubKey(c.Uint64("n"))
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer sub.Release()

	// Persist the advanced master before the sub-key exists anywhere,
	// so a crash cannot leave both claiming the same range.
	if kErr = ctr.Save(master); kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}

	subCtr, kErr := s.CreateFileContainer(c.String("out"), sub)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer subCtr.Close()

	fmt.Printf("sub-key for range [%d,%d) written to %s\n",
		sub.SeqNo(), sub.Capacity(), c.String("out"))
	return nil
}

func cmdRemaining(c *cli.Context) error {
	s, err := schemeFromFlag(c)
	if err != nil {
		return err
	}

	ctr, kErr := s.OpenFileContainer(c.String("key"))
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer ctr.Close()

	sk, kErr := ctr.Load()
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	defer sk.Release()

	rem, kErr := s.SigsRemaining(sk)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}
	total, kErr := s.SigsTotal(sk)
	if kErr != nil {
		return cli.NewExitError(kErr.Error(), 1)
	}

	kind := "master key"
	if sk.SubKey() {
		kind = "sub-key"
	}
	fmt.Printf("%s: %d of %d signatures remain (next index %d)\n",
		kind, rem, total, sk.SeqNo())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "stflkey"
	app.Usage = "manage stateful XMSS[MT] signature keys"

	algFlag := cli.StringFlag{
		Name:  "alg",
		Value: "XMSSMT-SHA2_20/2_256",
		Usage: "name of the XMSS[MT] instance",
	}
	keyFlag := cli.StringFlag{
		Name:  "key",
		Value: "key",
		Usage: "path of the key state file",
	}

	app.Commands = []cli.Command{
		{
			Name:   "algs",
			Usage:  "List XMSS[MT] instances",
			Action: cmdAlgs,
		},
		{
			Name:   "keygen",
			Usage:  "Generate a keypair",
			Action: cmdKeygen,
			Flags: []cli.Flag{
				algFlag,
				keyFlag,
				cli.StringFlag{
					Name:  "pub",
					Value: "key.pub",
					Usage: "path to write the public key to",
				},
				cli.Uint64Flag{
					Name:  "max",
					Usage: "limit the key to this many signatures",
				},
			},
		},
		{
			Name:   "sign",
			Usage:  "Sign a file",
			Action: cmdSign,
			Flags: []cli.Flag{
				algFlag,
				keyFlag,
				cli.StringFlag{Name: "in", Usage: "file to sign"},
				cli.StringFlag{
					Name:  "out",
					Value: "msg.sig",
					Usage: "path to write the signature to",
				},
			},
		},
		{
			Name:   "verify",
			Usage:  "Verify a signature",
			Action: cmdVerify,
			Flags: []cli.Flag{
				algFlag,
				cli.StringFlag{Name: "pub", Value: "key.pub"},
				cli.StringFlag{Name: "in", Usage: "signed file"},
				cli.StringFlag{Name: "sig", Value: "msg.sig"},
			},
		},
		{
			Name:   "derive",
			Usage:  "Carve a sub-key out of a master key",
			Action: cmdDerive,
			Flags: []cli.Flag{
				algFlag,
				keyFlag,
				cli.StringFlag{
					Name:  "out",
					Value: "subkey",
					Usage: "path of the new sub-key state file",
				},
				cli.Uint64Flag{
					Name:  "n",
					Value: 1,
					Usage: "number of signatures to reserve",
				},
			},
		},
		{
			Name:   "remaining",
			Usage:  "Show how many signatures a key has left",
			Action: cmdRemaining,
			Flags:  []cli.Flag{algFlag, keyFlag},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
