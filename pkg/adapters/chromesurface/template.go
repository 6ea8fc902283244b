package chromesurface

import (
	"bytes"
	"fmt"
	"html/template"
)

// shellVars parameterises the reader shell page.
type shellVars struct {
	Width      int
	ChapterGap int
	Background string
}

// renderShell renders the page that hosts the strip.
func renderShell(vars shellVars) (string, error) {
	tmpl, err := template.New("shell").Parse(shellTemplate)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// shellTemplate holds the strip container, its sentinel and the in-page
// agent. The agent records IntersectionObserver changes in a queue that the
// Go side drains by polling.
const shellTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      * { margin: 0; padding: 0; box-sizing: border-box; }
      body { background: {{.Background}}; }
      #strip { width: {{.Width}}px; margin: 0 auto; }
      .chapter + .chapter { margin-top: {{.ChapterGap}}px; }
      .page { display: block; width: 100%; }
      .page img { display: block; width: 100%; height: 100%; }
      #sentinel { height: 1px; }
    </style>
  </head>
  <body>
    <div id="strip"></div>
    <div id="sentinel"></div>
    <script>
      window.moku = (function () {
        var strip = document.getElementById('strip');
        var sentinel = document.getElementById('sentinel');
        var queue = [];
        var observer = new IntersectionObserver(function (entries) {
          entries.forEach(function (e) {
            var d = e.target.dataset;
            queue.push({
              chapter: d.chapter,
              page: Number(d.page),
              global: Number(d.global),
              ratio: e.isIntersecting ? Math.max(e.intersectionRatio, 0.0001) : 0
            });
          });
        }, { threshold: [0, 0.25, 0.5, 0.75, 1] });

        function key(chapter, page) {
          return '[data-chapter="' + CSS.escape(chapter) + '"][data-page="' + page + '"]';
        }

        return {
          render: function (chunks) {
            observer.disconnect();
            strip.textContent = '';
            chunks.forEach(function (chunk) {
              var section = document.createElement('section');
              section.className = 'chapter';
              chunk.pages.forEach(function (p) {
                var div = document.createElement('div');
                div.className = 'page';
                div.dataset.chapter = chunk.id;
                div.dataset.page = p.page;
                div.dataset.global = p.global;
                div.style.aspectRatio = String(p.aspect);
                var img = document.createElement('img');
                img.src = p.src;
                img.decoding = 'async';
                div.appendChild(img);
                section.appendChild(div);
                observer.observe(div);
              });
              strip.appendChild(section);
            });
          },
          offset: function (chapter, page) {
            var el = strip.querySelector(key(chapter, page));
            if (!el) { return -1; }
            return el.getBoundingClientRect().top + window.scrollY;
          },
          sentinelDistance: function () {
            return sentinel.getBoundingClientRect().top - window.innerHeight;
          },
          drain: function () {
            var out = queue;
            queue = [];
            return { entries: out, scrollTop: window.scrollY };
          }
        };
      })();
    </script>
  </body>
</html>`
