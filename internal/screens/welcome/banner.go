package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/ccgrun/internal/ui/theme"
)

const bannerArt = `
  ██████╗ ██████╗  ██████╗
 ██╔════╝██╔════╝ ██╔════╝
 ██║     ██║      ██║  ███╗
 ██║     ██║      ██║   ██║
 ╚██████╗╚██████╗ ╚██████╔╝
  ╚═════╝ ╚═════╝  ╚═════╝`

const bannerCompact = "C C G"

// RenderBanner returns the experiment banner. Terminals narrower than 32
// columns get the compact form.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 32 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
