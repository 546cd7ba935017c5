package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/document"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	client *apisvc.Client
	docSvc *document.Service
	sess   *session.Session
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL - log into the platform")
	fmt.Fprintln(cli.out, "  upload -file PATH -type TYPE [-subject S] [-grade G] [-level L] [-year N] [-paper N] [-term T] [-no-process] [-watch] - upload a document for ingestion")
	fmt.Fprintln(cli.out, "  list - list uploaded documents")
	fmt.Fprintln(cli.out, "  retry -id DOCUMENT_ID - reprocess a failed document")
	fmt.Fprintln(cli.out, "  delete -id DOCUMENT_ID - delete a document")
	fmt.Fprintln(cli.out, "  stats - show ingestion statistics")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginUname := loginCmd.String("username", "", "The username or email. The password will be prompted next.")

	uploadCmd := flag.NewFlagSet("upload", flag.ExitOnError)
	uploadFile := uploadCmd.String("file", "", "Path of the document to upload.")
	uploadType := uploadCmd.String("type", "", "Document type tag (past_paper, marking_scheme, notes, syllabus, textbook).")
	uploadSubject := uploadCmd.String("subject", "", "Subject.")
	uploadGrade := uploadCmd.String("grade", "", "Grade.")
	uploadLevel := uploadCmd.String("level", "", "Education level.")
	uploadYear := uploadCmd.Int("year", 0, "Exam year.")
	uploadPaper := uploadCmd.Int("paper", 0, "Paper number.")
	uploadTerm := uploadCmd.String("term", "", "Term.")
	uploadNoProcess := uploadCmd.Bool("no-process", false, "Upload only; do not start ingestion immediately.")
	uploadWatch := uploadCmd.Bool("watch", false, "Watch the ingestion job until it completes or fails.")

	retryCmd := flag.NewFlagSet("retry", flag.ExitOnError)
	retryID := retryCmd.String("id", "", "The document id.")

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	deleteID := deleteCmd.String("id", "", "The document id.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginUname, string(pwd))
	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadFile == "" || *uploadType == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(uploadOptions{
			path:    *uploadFile,
			docType: *uploadType,
			subject: *uploadSubject,
			grade:   *uploadGrade,
			level:   *uploadLevel,
			year:    *uploadYear,
			paper:   *uploadPaper,
			term:    *uploadTerm,
			process: !*uploadNoProcess,
			watch:   *uploadWatch,
		})
	case "list":
		return cli.list()
	case "retry":
		if err := retryCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *retryID == "" {
			retryCmd.Usage()
			return errHelp
		}
		return cli.docSvc.Retry(context.Background(), *retryID)
	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.docSvc.Delete(context.Background(), *deleteID)
	case "stats":
		return cli.stats()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(uname, pwd string) error {
	if err := cli.client.Login(context.Background(), uname, pwd); err != nil {
		return err
	}
	claims := cli.sess.Claims()
	fmt.Fprintf(cli.out, "logged in as %s\n", claims.Username)
	return nil
}

type uploadOptions struct {
	path    string
	docType string
	subject string
	grade   string
	level   string
	year    int
	paper   int
	term    string
	process bool
	watch   bool
}

func (cli *commandLine) upload(opts uploadOptions) error {
	f, err := os.Open(opts.path)
	if err != nil {
		return err
	}
	defer f.Close()

	up := &document.NewUpload{
		Filename:           filepath.Base(opts.path),
		File:               f,
		DocumentType:       opts.docType,
		Subject:            opts.subject,
		Grade:              opts.grade,
		EducationLevel:     opts.level,
		Year:               opts.year,
		PaperNumber:        opts.paper,
		Term:               opts.term,
		ProcessImmediately: &opts.process,
	}
	res, err := cli.docSvc.Upload(context.Background(), up)
	if err != nil {
		if vErr, ok := err.(*core.ValidationError); ok {
			for _, fld := range vErr.Fields {
				fmt.Fprintf(cli.out, "%s: %s\n", fld.Field, fld.Error)
			}
		}
		return err
	}
	if job, ok := cli.docSvc.Registry().Get(up.Filename); ok && job.Status == document.StatusFailed {
		return errors.New(job.Message)
	}
	fmt.Fprintf(cli.out, "uploaded %s as document %s\n", up.Filename, res.DocumentID)

	if opts.watch {
		cli.watch(up.Filename)
	}
	return nil
}

// watch prints the ingestion job's progress until it reaches a terminal state
// or leaves the registry.
func (cli *commandLine) watch(filename string) {
	var last document.UploadJob
	for {
		job, ok := cli.docSvc.Registry().Get(filename)
		if !ok {
			return
		}
		if job != last {
			fmt.Fprintf(cli.out, "%s: %s %d%% - %s\n", job.Filename, job.Status, job.Progress, job.Message)
			last = job
		}
		if job.Status.Terminal() {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func (cli *commandLine) list() error {
	if err := cli.docSvc.RefreshDocuments(context.Background()); err != nil {
		return err
	}
	for _, doc := range cli.docSvc.Documents() {
		fmt.Fprintf(cli.out, "%s  %-12s %-14s %s\n", doc.ID, doc.Status, doc.DocumentType, doc.Filename)
	}
	return nil
}

func (cli *commandLine) stats() error {
	stats, err := cli.docSvc.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "documents: %d (pending %d, processing %d, completed %d, failed %d)\nchunks: %d\n",
		stats.TotalDocuments, stats.Pending, stats.Processing, stats.Completed, stats.Failed, stats.TotalChunks)
	return nil
}
