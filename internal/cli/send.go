package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/estimate"
	"github.com/linksim/linksim/pipeline"
	"github.com/linksim/linksim/textbits"
)

const defaultMessage = "Esta é uma mensagem de texto, que deve conter 140 caracteres. " +
	"Pode não parecer, mas 140 caracteres é bastante coisa. Viu só? Enrolei mas foi"

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Type a message and a noise variance, and see what arrives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			return runSend(cmd.InOrStdin(), cmd.OutOrStdout(), p, a.textCodec(), a.cfg.Text.MaxChars)
		},
	}
}

// runSend drives one interactive transmission. An over-long message is
// reported on out and is not an error.
func runSend(in io.Reader, out io.Writer, p *pipeline.Pipeline, tc *textbits.Codec, maxChars int) error {
	r := bufio.NewReader(in)

	fmt.Fprintf(out, "Digite a mensagem de teste a ser enviada (max %d caracteres), "+
		"ou deixe em branco para uma mensagem padrão.\n\nMensagem > ", maxChars)
	msg, err := readLine(r)
	if err != nil {
		return err
	}
	n := textbits.CharCount(msg)
	switch {
	case n == 0:
		msg = defaultMessage
		n = textbits.CharCount(msg)
	case n > maxChars:
		fmt.Fprintf(out, "Erro: A mensagem excede o limite de %d caracteres.\n", maxChars)
		return nil
	}

	fmt.Fprintf(out, "\nTamanho da mensagem a ser enviada (caracteres): %d\n", n)
	fmt.Fprintf(out, "\nMensagem: \"%s\"\n\n", msg)

	fmt.Fprint(out, "Digite agora a variância do ruído gaussiano no canal discreto: ")
	line, err := readLine(r)
	if err != nil {
		return err
	}
	variance, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return fmt.Errorf("invalid variance %q: %w", strings.TrimSpace(line), err)
	}
	if variance < 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
		return fmt.Errorf("invalid variance %q: %w", strings.TrimSpace(line), pipeline.ErrInvalidVariance)
	}

	fmt.Fprint(out, "\nEnviando mensagem...\n\n")
	fmt.Fprintf(out, "SNR: %.2f dB\n", channel.VarianceToSNRdB(variance))

	res, err := p.TransmitText(tc, msg, variance)
	if err != nil {
		return err
	}
	ratio := estimate.CharacterErrorRate(msg, res.DecodedText)

	fmt.Fprintf(out, "\nMensagem recebida: \"%s\"\n", res.DecodedText)
	fmt.Fprintf(out, "\nQuantidade de erros de caracteres: %d\n", ratio.Errors)
	fmt.Fprintf(out, "Taxa de erro de caracteres: %.2f%%\n", ratio.Float()*100)
	return nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	case errors.Is(err, io.EOF):
		return "", io.ErrUnexpectedEOF
	default:
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
