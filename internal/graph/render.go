package graph

import (
	"bytes"
	"html/template"
)

// VisNetworkScript is the vis-network bundle the page loads.
const VisNetworkScript = "https://unpkg.com/vis-network/standalone/umd/vis-network.min.js"

// html/template encodes .Nodes and .Edges as JSON inside the script
// context, so labels cannot break out of it.
var pageTemplate = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <script src="{{.Script}}"></script>
</head>
<body>
<div id="network" style="width: 100%; height: {{.Height}}px;"></div>
<script>
  var nodes = new vis.DataSet({{.Nodes}});
  var edges = new vis.DataSet({{.Edges}});
  var container = document.getElementById('network');
  var data = { nodes: nodes, edges: edges };
  var options = {
    nodes: {
      shape: 'dot',
      size: 15,
      font: { size: 14, color: '#000' },
      borderWidth: 2
    },
    edges: {
      width: 2,
      font: { size: 12, align: 'middle' },
      arrows: { to: { enabled: true, scaleFactor: 0.5 } },
      color: { color: '#848484', highlight: '#848484', hover: '#848484' },
      smooth: { type: 'dynamic' }
    },
    physics: {
      stabilization: false,
      barnesHut: {
        gravitationalConstant: -8000,
        centralGravity: 0.3,
        springLength: 95,
        springConstant: 0.04
      }
    }
  };
  var network = new vis.Network(container, data, options);
</script>
</body>
</html>
`))

// DefaultHeight is the canvas height in pixels.
const DefaultHeight = 600

// RenderHTML produces a standalone vis-network page for g.
func RenderHTML(g Graph) ([]byte, error) {
	nodes, edges := g.Nodes, g.Edges
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Script string
		Height int
		Nodes  []Node
		Edges  []Edge
	}{VisNetworkScript, DefaultHeight, nodes, edges})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
