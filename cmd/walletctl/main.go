// walletctl drives the SkillWallet client flows from the command line: OTP
// login, work-proof submission from local files (the file-picker path), and
// proof listing. It is the development harness for the wizard and API client.
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"skillwallet/internal/api"
	"skillwallet/internal/blob"
	"skillwallet/internal/capture"
	"skillwallet/internal/media"
	"skillwallet/internal/platform/config"
	"skillwallet/internal/platform/logger"
	"skillwallet/internal/session"
	"skillwallet/internal/upload"
	"skillwallet/internal/wizard"
)

func main() {
	var (
		baseURL     = flag.String("base", "", "backend base URL including /api/v1 (default $WALLET_BASE_URL)")
		sessionPath = flag.String("session", "", "session file path (default $WALLET_SESSION_FILE or ~/.skillwallet/session.json)")
		phone       = flag.String("phone", "", "phone number for login")
		sendOTP     = flag.Bool("send-otp", false, "request an OTP for -phone and exit")
		code        = flag.String("code", "", "OTP code; with -phone, verifies and stores the token")
		logout      = flag.Bool("logout", false, "clear the stored session and exit")
		photo       = flag.String("photo", "", "work evidence file (image or video) to submit")
		story       = flag.String("story", "", "voice story file to submit alongside -photo")
		text        = flag.String("text", "", "typed story to submit instead of -story")
		skill       = flag.String("skill", "Manual Work Entry", "skill name for the work proof")
		lang        = flag.String("lang", "en", "story language code")
		listProofs  = flag.Bool("proofs", false, "list credentials and exit")
	)
	flag.Parse()
	_ = config.Load()

	log := logger.New(config.GetEnv("LOG_LEVEL", "warn"), "text")

	base := *baseURL
	if base == "" {
		base = config.GetEnv("WALLET_BASE_URL", "http://localhost:8000/api/v1")
	}
	sessPath := *sessionPath
	if sessPath == "" {
		sessPath = config.GetEnv("WALLET_SESSION_FILE", "")
	}
	if sessPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatal("resolve home dir: %v", err)
		}
		sessPath = filepath.Join(home, ".skillwallet", "session.json")
	}

	store, err := session.OpenFileStore(sessPath)
	if err != nil {
		fatal("open session: %v", err)
	}
	sess := session.New(store)

	if *logout {
		if err := sess.Clear(); err != nil {
			fatal("logout: %v", err)
		}
		fmt.Println("session cleared")
		return
	}

	client := api.New(base, log)
	client.SetToken(sess.Token())
	ctx := context.Background()

	switch {
	case *sendOTP:
		if *phone == "" {
			fatal("-send-otp requires -phone")
		}
		status, err := client.SendOTP(ctx, *phone)
		if err != nil {
			fatal("send otp: %v", err)
		}
		fmt.Println(status.Message)

	case *code != "":
		if *phone == "" {
			fatal("-code requires -phone")
		}
		tok, err := client.VerifyOTP(ctx, *phone, *code)
		if err != nil {
			fatal("verify otp: %v", err)
		}
		client.SetToken(tok.AccessToken)
		if err := sess.SetToken(tok.AccessToken); err != nil {
			fatal("persist token: %v", err)
		}
		wallet, err := client.InitializeWallet(ctx, *phone)
		if err != nil {
			fatal("initialize wallet: %v", err)
		}
		if err := sess.SetUserID(wallet.UserID); err != nil {
			fatal("persist user id: %v", err)
		}
		fmt.Printf("logged in as user %d (wallet %s)\n", wallet.UserID, wallet.WalletHash)

	case *listProofs:
		userID := mustUserID(sess)
		proofs, err := client.GetProofs(ctx, userID, "all")
		if err != nil {
			fatal("list proofs: %v", err)
		}
		for _, p := range proofs {
			fmt.Printf("%s  %s  grade=%d  %s\n", p.TokenID, p.Skill, p.GradeScore, p.VerificationStatus)
		}

	case *photo != "":
		userID := mustUserID(sess)
		imagePath := runFlow(ctx, client, sess, userID, wizard.WorkProofFlow(), *photo)

		storyPath := ""
		if *text != "" {
			storyPath = runTextFlow(ctx, client, sess, userID, *text)
		} else if *story != "" {
			storyPath = runFlow(ctx, client, sess, userID, wizard.VoiceStoryFlow(), *story)
		}

		description := "Voice recorded work proof"
		if *text != "" {
			description = *text
		}
		receipt, err := client.SubmitWork(ctx, userID, api.WorkSubmission{
			SkillName:    *skill,
			ImageURL:     imagePath,
			AudioFileURL: storyPath,
			LanguageCode: *lang,
			Description:  description,
		})
		if err != nil {
			fatal("submit work: %v", err)
		}
		fmt.Printf("minted %s for %q (%s)\n", receipt.SkillToken, receipt.SkillName, receipt.VerificationStatus)

	default:
		flag.Usage()
	}
}

// runFlow pushes one local file through a wizard: the file-picker path that
// jumps straight to review, then accept and upload.
func runFlow(ctx context.Context, client *api.Client, sess *session.Session, userID int64, flow wizard.Flow, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	w := newWizard(client, sess, userID, flow)
	defer w.Close()

	if err := w.ProvideFile(data, mimeType); err != nil {
		fatal("%s: provide file: %v", flow.Name, err)
	}
	if err := w.Accept(ctx); err != nil {
		fatal("%s: %v (%s)", flow.Name, err, w.State().Err)
	}
	return w.Result().RemotePath
}

// runTextFlow submits a typed story through the text wizard.
func runTextFlow(ctx context.Context, client *api.Client, sess *session.Session, userID int64, text string) string {
	w := newWizard(client, sess, userID, wizard.TextStoryFlow())
	defer w.Close()

	if err := w.ProvideText(text); err != nil {
		fatal("text story: %v", err)
	}
	if err := w.Accept(ctx); err != nil {
		fatal("text story: %v (%s)", err, w.State().Err)
	}
	return w.Result().RemotePath
}

func newWizard(client *api.Client, sess *session.Session, userID int64, flow wizard.Flow) *wizard.Wizard {
	urls := blob.NewURLRegistry()
	return wizard.New(flow, wizard.Deps{
		Adapter:    &media.FileAdapter{},
		URLs:       urls,
		Controller: capture.NewController(urls),
		Submitter:  upload.NewSubmitter(client, userID, logger.Discard()),
		Session:    sess,
		Log:        nil,
	})
}

func mustUserID(sess *session.Session) int64 {
	id, ok := sess.UserID()
	if !ok {
		fatal("not logged in; run with -phone and -code first")
	}
	return id
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
