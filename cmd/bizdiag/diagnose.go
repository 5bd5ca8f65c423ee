package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizdiag/internal/export"
	"bizdiag/internal/gateway/app"
	"bizdiag/internal/orchestrator"
)

type diagnoseOptions struct {
	save      bool
	exportFmt string
	exportDir string
	output    string
}

func newDiagnoseCmd(root *rootOptions) *cobra.Command {
	o := &diagnoseOptions{}
	cmd := &cobra.Command{
		Use:   "diagnose [SYMPTOM]",
		Short: "Run the guided diagnosis, redesign and impact analysis",
		Long: `Asks four follow-up questions about the symptom, finds the root cause and
then produces the process redesign and its business impact.

Examples:
  # Prompt for the symptom
  bizdiag diagnose

  # Save the result as a case and export it as YAML
  bizdiag diagnose "Los pedidos tardan una semana en salir" --save --export yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, root, o, args)
		},
	}
	cmd.Flags().BoolVar(&o.save, "save", false, "Save the completed analysis as a case")
	cmd.Flags().StringVar(&o.exportFmt, "export", "", "Export the analysis (json, yaml, md)")
	cmd.Flags().StringVar(&o.exportDir, "export-dir", "", "Export directory (defaults to EXPORT_DIR)")
	cmd.Flags().StringVarP(&o.output, "output", "o", outputHuman, "Output format (human, json, yaml, md)")
	return cmd
}

func runDiagnose(cmd *cobra.Command, root *rootOptions, o *diagnoseOptions, args []string) error {
	if err := checkOutput(o.output, outputHuman, outputJSON, outputYAML, outputMarkdown); err != nil {
		return err
	}
	var exporter export.Exporter
	if o.exportFmt != "" {
		var ok bool
		if exporter, ok = export.ForFormat(o.exportFmt); !ok {
			return fmt.Errorf("unsupported export format %q", o.exportFmt)
		}
	}

	ctx := cmd.Context()
	env, err := root.open()
	if err != nil {
		return err
	}
	defer env.Close()

	client, err := newLLMClient(ctx, env.cfg.LLM)
	if err != nil {
		return err
	}
	defer client.Close()
	runner, _ := app.NewRunner(env.cfg.LLM, client, env.store, env.log)
	sessions := orchestrator.NewManager(runner, env.repo(), env.log.Named("session"))
	defer sessions.Close()
	s := sessions.Create()

	// Prompts and progress go to stderr so stdout carries only the report.
	in := bufio.NewReader(cmd.InOrStdin())
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	sp := newSpinner(errOut)

	symptom := ""
	if len(args) == 1 {
		symptom = args[0]
	} else if symptom, err = prompt(in, errOut, "Síntoma del negocio: "); err != nil {
		return err
	}
	if err := s.Wizard.EnterSymptom(symptom); err != nil {
		return err
	}
	printHeader(errOut, "Diagnóstico Estratégico")

	var questions []string
	err = step(sp, errOut, "Generando preguntas de seguimiento...", "Preguntas listas", func() error {
		var gerr error
		questions, gerr = s.Wizard.GenerateQuestions(ctx)
		return gerr
	})
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	answers := make([]string, len(questions))
	for i, q := range questions {
		bold.Fprintf(errOut, "%d. %s\n", i+1, q)
		if answers[i], err = prompt(in, errOut, "> "); err != nil {
			return err
		}
	}
	if err := s.Wizard.SetAnswers(answers); err != nil {
		return err
	}

	err = step(sp, errOut, "Analizando la causa raíz...", "Causa raíz identificada", func() error {
		_, aerr := s.Wizard.Analyze(ctx)
		return aerr
	})
	if err != nil {
		return err
	}
	err = step(sp, errOut, "Generando rediseño e impacto...", "Rediseño e impacto listos", func() error {
		s.Wait()
		return stageFailure(s.Snapshot())
	})
	if err != nil {
		return err
	}

	st := s.Snapshot()
	report := export.Report{Diagnosis: st.Diagnosis, Redesign: st.Redesign, Impact: st.Impact}
	switch o.output {
	case outputHuman:
		err = renderMarkdown(out, export.Markdown(report))
	case outputMarkdown:
		_, err = io.WriteString(out, export.Markdown(report))
	default:
		err = writeStructured(out, report, o.output)
	}
	if err != nil {
		return err
	}

	if o.save {
		c, err := s.Save(ctx)
		if err != nil {
			return err
		}
		printSuccess(errOut, "Caso guardado: "+c.ID)
	}
	if exporter != nil {
		a, err := exporter.Export(ctx, report)
		if err != nil {
			return err
		}
		dir := o.exportDir
		if dir == "" {
			dir = env.cfg.Export.Dir
		}
		loc, err := export.DiskSink{Dir: dir}.Put(ctx, "", a)
		if err != nil {
			return err
		}
		printSuccess(errOut, "Exportado a "+loc)
	}
	return nil
}

// stageFailure turns a failed background stage into an error.
func stageFailure(st orchestrator.State) error {
	switch {
	case st.RedesignStatus.Error != "":
		return errors.New(st.RedesignStatus.Error)
	case st.ImpactStatus.Error != "":
		return errors.New(st.ImpactStatus.Error)
	case !st.Complete():
		return errors.New("el análisis quedó incompleto")
	}
	return nil
}

// prompt reads one non-empty line, asking again on blank input.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	for {
		fmt.Fprint(out, label)
		line, err := in.ReadString('\n')
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("input ended before the analysis finished")
			}
			return "", err
		}
	}
}
