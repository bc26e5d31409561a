// Package display is the presentation sink: a window showing the input and
// equalised images side by side, kept open until the user closes it. It plays
// no part in the correctness of the pipeline.
package display

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	imageAreaWidth  = 500
	imageAreaHeight = 400
)

// Show opens the comparison window and blocks until it is closed.
func Show(original, equalised image.Image) {
	viewer := app.New()
	window := viewer.NewWindow("Histogram Equaliser")

	window.SetContent(comparisonView(original, equalised))
	window.Resize(fyne.NewSize(2*imageAreaWidth, imageAreaHeight))
	window.CenterOnScreen()
	window.ShowAndRun()
}

func comparisonView(original, equalised image.Image) fyne.CanvasObject {
	split := container.NewHSplit(
		labelledImage("**Input**", original),
		labelledImage("**Equalised**", equalised),
	)
	split.SetOffset(0.5)
	return split
}

func labelledImage(label string, img image.Image) fyne.CanvasObject {
	view := canvas.NewImageFromImage(img)
	view.FillMode = canvas.ImageFillContain
	view.ScaleMode = canvas.ImageScaleSmooth
	view.SetMinSize(fyne.NewSize(imageAreaWidth, imageAreaHeight))

	return container.NewBorder(
		widget.NewRichTextFromMarkdown(label),
		nil, nil, nil,
		view,
	)
}
