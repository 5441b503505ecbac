// The signtool command provisions signing credentials for a mode and
// signs media files end to end. It is the CLI counterpart of the
// in-process provisioning API and is mainly useful for development and
// smoke testing against a running caserver.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/clearsign/c2pa-provisioning-backend/cmd/flags"
	"github.com/clearsign/c2pa-provisioning-backend/common"
	"github.com/clearsign/c2pa-provisioning-backend/credstore"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/keystore"
	"github.com/clearsign/c2pa-provisioning-backend/manifest"
	"github.com/clearsign/c2pa-provisioning-backend/provisioner"
	"github.com/clearsign/c2pa-provisioning-backend/signing"
	"github.com/clearsign/c2pa-provisioning-backend/storage"
)

var modeFlag = &cli.StringFlag{
	Name:    "mode",
	Value:   "bundled",
	Usage:   "signing mode: bundled, software, hardware, user or remote",
	EnvVars: []string{"CLEARSIGN_MODE"},
}

var keystoreDirFlag = &cli.StringFlag{
	Name:    "keystore-dir",
	Value:   "",
	Usage:   "directory for the local key store (defaults to ~/.clearsign/keys)",
	EnvVars: []string{"CLEARSIGN_KEYSTORE_DIR"},
}

var passphraseFlag = &cli.StringFlag{
	Name:    "passphrase",
	Usage:   "passphrase sealing local keys at rest",
	EnvVars: []string{"CLEARSIGN_PASSPHRASE"},
}

var enrollURLFlag = &cli.StringFlag{
	Name:    "enroll-url",
	Usage:   "enrollment CA base URL for hardware mode",
	EnvVars: []string{"CLEARSIGN_ENROLL_URL"},
}

var enrollTokenFlag = &cli.StringFlag{
	Name:    "enroll-token",
	Usage:   "bearer token for the enrollment CA",
	EnvVars: []string{"CLEARSIGN_ENROLL_TOKEN"},
}

var remoteURLFlag = &cli.StringFlag{
	Name:    "remote-url",
	Usage:   "remote signing service base URL for remote mode",
	EnvVars: []string{"CLEARSIGN_REMOTE_URL"},
}

var remoteTokenFlag = &cli.StringFlag{
	Name:    "remote-token",
	Usage:   "bearer token for the remote signing service",
	EnvVars: []string{"CLEARSIGN_REMOTE_TOKEN"},
}

var tsaURLFlag = &cli.StringFlag{
	Name:    "tsa-url",
	Usage:   "RFC 3161 timestamp authority URL",
	EnvVars: []string{"CLEARSIGN_TSA_URL"},
}

var commonNameFlag = &cli.StringFlag{
	Name:  "common-name",
	Value: "ClearSign User",
	Usage: "certificate subject common name",
}

var organizationFlag = &cli.StringFlag{
	Name:  "organization",
	Value: "ClearSign",
	Usage: "certificate subject organization",
}

var outputFlag = &cli.StringFlag{
	Name:    "out",
	Aliases: []string{"o"},
	Usage:   "output path (defaults to <input>.sidecar.json)",
}

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Value: "image/jpeg",
	Usage: "media format of the input",
}

var latFlag = &cli.Float64Flag{
	Name:  "lat",
	Usage: "capture latitude for the location assertion",
}

var lonFlag = &cli.Float64Flag{
	Name:  "lon",
	Usage: "capture longitude for the location assertion",
}

var certFileFlag = &cli.StringFlag{
	Name:     "cert",
	Usage:    "PEM certificate chain file to import",
	Required: true,
}

var keyFileFlag = &cli.StringFlag{
	Name:     "key",
	Usage:    "PEM private key file to import",
	Required: true,
}

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "signtool",
		Usage: "Provision signing credentials and sign media files",
		Flags: append([]cli.Flag{
			modeFlag,
			keystoreDirFlag,
			passphraseFlag,
			flags.StorageURIFlag,
			enrollURLFlag,
			enrollTokenFlag,
			remoteURLFlag,
			remoteTokenFlag,
			tsaURLFlag,
			commonNameFlag,
			organizationFlag,
		}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:      "sign",
				Usage:     "sign a media file under the selected mode",
				ArgsUsage: "<input-file>",
				Flags:     []cli.Flag{outputFlag, formatFlag, latFlag, lonFlag},
				Action:    runSign,
			},
			{
				Name:   "import",
				Usage:  "import a user-provided certificate and key pair",
				Flags:  []cli.Flag{certFileFlag, keyFileFlag},
				Action: runImport,
			},
			{
				Name:   "reset",
				Usage:  "remove the selected mode's key and cached chain",
				Action: runReset,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newProvisioner(cCtx *cli.Context) (*provisioner.Provisioner, error) {
	logger := flags.SetupLogger(cCtx)

	dir := cCtx.String(keystoreDirFlag.Name)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = home + "/.clearsign/keys"
	}
	passphrase := []byte(cCtx.String(passphraseFlag.Name))

	softKeys, err := keystore.NewSoftKeyStore(dir, passphrase, logger)
	if err != nil {
		return nil, err
	}
	enclaveKeys, err := keystore.NewEnclaveKeyStore(dir+"/enclave", passphrase, logger)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFactory(logger).BackendFor(cCtx.String(flags.StorageURIFlag.Name))
	if err != nil {
		return nil, err
	}
	store := credstore.New(softKeys, blobs)

	hostname, _ := os.Hostname()
	return provisioner.New(provisioner.Config{
		Keys:        store,
		EnclaveKeys: enclaveKeys,
		Blobs:       store,
		Profile: interfaces.CertificateProfile{
			CommonName:   cCtx.String(commonNameFlag.Name),
			Organization: cCtx.String(organizationFlag.Name),
		},
		EnrollmentURL:         cCtx.String(enrollURLFlag.Name),
		EnrollmentToken:       cCtx.String(enrollTokenFlag.Name),
		RemoteSignerURL:       cCtx.String(remoteURLFlag.Name),
		RemoteSignerToken:     cCtx.String(remoteTokenFlag.Name),
		TimestampAuthorityURL: cCtx.String(tsaURLFlag.Name),
		DeviceID:              hostname,
		AppVersion:            common.Version,
		Log:                   logger,
	})
}

func runSign(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return cli.Exit("expected exactly one input file", 1)
	}
	inPath := cCtx.Args().First()

	mode, err := interfaces.ParseSigningMode(cCtx.String(modeFlag.Name))
	if err != nil {
		return err
	}

	p, err := newProvisioner(cCtx)
	if err != nil {
		return err
	}

	orch, err := signing.NewOrchestrator(p, &signing.SidecarEmbedder{}, "", common.Version, flags.SetupLogger(cCtx))
	if err != nil {
		return err
	}

	input, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	var geo *manifest.GeoLocation
	if cCtx.IsSet(latFlag.Name) && cCtx.IsSet(lonFlag.Name) {
		geo = &manifest.GeoLocation{
			Latitude:  cCtx.Float64(latFlag.Name),
			Longitude: cCtx.Float64(lonFlag.Name),
		}
	}

	ctx, cancel := context.WithTimeout(cCtx.Context, 60*time.Second)
	defer cancel()

	signed, err := orch.SignAndSave(ctx, input, cCtx.String(formatFlag.Name), mode, geo)
	if err != nil {
		return err
	}

	outPath := cCtx.String(outputFlag.Name)
	if outPath == "" {
		outPath = inPath + ".sidecar.json"
	}
	return os.WriteFile(outPath, signed, 0o644)
}

func runImport(cCtx *cli.Context) error {
	certPEM, err := os.ReadFile(cCtx.String(certFileFlag.Name))
	if err != nil {
		return err
	}
	keyPEM, err := os.ReadFile(cCtx.String(keyFileFlag.Name))
	if err != nil {
		return err
	}

	p, err := newProvisioner(cCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cCtx.Context, 30*time.Second)
	defer cancel()
	return p.ImportUserCredentials(ctx, cryptoutils.CertChainPEM(certPEM), cryptoutils.KeyPEM(keyPEM))
}

func runReset(cCtx *cli.Context) error {
	mode, err := interfaces.ParseSigningMode(cCtx.String(modeFlag.Name))
	if err != nil {
		return err
	}

	p, err := newProvisioner(cCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cCtx.Context, 30*time.Second)
	defer cancel()
	return p.Reset(ctx, mode)
}
