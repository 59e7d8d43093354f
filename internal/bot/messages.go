package bot

import (
	"errors"
	"fmt"

	"github.com/ytget/rip-bot/internal/model"
)

// User-facing texts
const (
	TextSearching       = "Buscando en Deezer…"
	TextNothingFound    = "No encontré nada con ese nombre"
	TextChoose          = "Elige lo que quieres descargar:"
	TextDownloading     = "Descargando con streamrip…"
	TextTooLarge        = "Archivo muy grande, lo salto…"
	TextNothingDownload = "No se pudo descargar nada o el contenido está bloqueado"

	startTemplate = "Envía:\n• Un enlace de Deezer/Spotify/YouTube\n• O escribe directamente el nombre del artista, álbum o canción\n\nCalidad actual: %s (cambia con /mp3 o /flac)"
)

// StartText returns the usage message for a user whose format is f
func StartText(f model.Format) string {
	return fmt.Sprintf(startTemplate, f.Label())
}

// FormatChangedText confirms a format change
func FormatChangedText(f model.Format) string {
	return "Calidad cambiada a " + f.Label()
}

// SelectedText replaces the keyboard message once a result is chosen
func SelectedText(link string) string {
	return "Descargando:\n" + link
}

// CaptionText is attached to every delivered audio file
func CaptionText(f model.Format) string {
	return "Calidad: " + f.Label()
}

// ErrorText renders a failure for the user
func ErrorText(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// ResultText is the final status of a job
func ResultText(r model.Result) string {
	switch {
	case !r.Outcome.IsTerminal():
		return ErrorText(fmt.Errorf("unknown outcome %q", r.Outcome))
	case r.Outcome.IsFailure():
		if r.Err == nil {
			return ErrorText(errors.New("job failed"))
		}
		return ErrorText(r.Err)
	case r.Outcome == model.OutcomeEmpty:
		return TextNothingDownload
	default:
		return fmt.Sprintf("Terminado! Envié %d archivos", r.Sent)
	}
}
