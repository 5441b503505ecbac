// The caserver command serves the development CA and remote signing
// service APIs: CSR enrollment, signer configuration and payload
// signing.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/clearsign/c2pa-provisioning-backend/api/enrollhandler"
	"github.com/clearsign/c2pa-provisioning-backend/api/signerhandler"
	"github.com/clearsign/c2pa-provisioning-backend/cmd/flags"
	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/httpserver"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
	"github.com/clearsign/c2pa-provisioning-backend/kms"
	"github.com/clearsign/c2pa-provisioning-backend/signer"
)

var caMasterKeyFlag = &cli.StringFlag{
	Name:     "ca-master-key",
	Usage:    "hex-encoded 32-byte master key deriving the CA identity",
	Required: true,
	EnvVars:  []string{"CLEARSIGN_CA_MASTER_KEY"},
}

var caNameFlag = &cli.StringFlag{
	Name:    "ca-name",
	Value:   "ClearSign Development CA",
	Usage:   "common name of the CA certificate",
	EnvVars: []string{"CLEARSIGN_CA_NAME"},
}

var authTokenFlag = &cli.StringFlag{
	Name:    "auth-token",
	Usage:   "bearer token required on API requests; empty disables auth",
	EnvVars: []string{"CLEARSIGN_AUTH_TOKEN"},
}

var tsaURLFlag = &cli.StringFlag{
	Name:    "tsa-url",
	Usage:   "RFC 3161 timestamp authority URL advertised to clients",
	EnvVars: []string{"CLEARSIGN_TSA_URL"},
}

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "caserver",
		Usage: "Serve the development CA and remote signing service",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			caMasterKeyFlag,
			caNameFlag,
			authTokenFlag,
			tsaURLFlag,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
	authToken := cCtx.String(authTokenFlag.Name)
	tsaURL := cCtx.String(tsaURLFlag.Name)

	logger := flags.SetupLogger(cCtx)

	masterKey, err := hex.DecodeString(cCtx.String(caMasterKeyFlag.Name))
	if err != nil {
		logger.Error("Invalid CA master key", "err", err)
		return err
	}

	ca, err := kms.NewSimpleCA(masterKey, cCtx.String(caNameFlag.Name))
	if err != nil {
		logger.Error("Failed to initialize CA", "err", err)
		return err
	}
	logger.Info("CA initialized", "name", cCtx.String(caNameFlag.Name))

	serviceSigner, err := newServiceSigner(ca, tsaURL)
	if err != nil {
		logger.Error("Failed to initialize service signer", "err", err)
		return err
	}

	srv, err := httpserver.New(
		flags.ConfigureServer(cCtx, logger, listenAddr),
		enrollhandler.NewHandler(ca, authToken, logger),
		signerhandler.NewHandler(serviceSigner, authToken, logger),
	)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

// newServiceSigner creates the key backing the remote signing endpoint
// and issues it a certificate from the CA.
func newServiceSigner(ca *kms.SimpleCA, tsaURL string) (interfaces.Signer, error) {
	profile := interfaces.CertificateProfile{
		CommonName:   "ClearSign Remote Signer",
		Organization: "ClearSign",
	}

	keyPEM, csr, err := cryptoutils.CreateCSRWithRandomKey(profile)
	if err != nil {
		return nil, fmt.Errorf("creating service CSR: %w", err)
	}

	issued, err := ca.SignCSR(csr)
	if err != nil {
		return nil, fmt.Errorf("issuing service certificate: %w", err)
	}

	return signer.NewDirectKeySigner(keyPEM, issued.ChainPEM, interfaces.AlgES256, tsaURL)
}
