package steps

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
	o "github.com/relaygo/relay-test-harness/framework/opt"
)

// JUnitReporter records every step and writes a JUnit XML document when EndLog is called.
// Each sequence becomes a test suite and each step a test case.
type JUnitReporter struct {
	filePath   string
	properties map[string]string
	stepIDs    []StepID // preserves the order that the steps were run in
	steps      map[string]jUnitStepStatus
}

type jUnitStepStatus struct {
	failure  o.Maybe[string]
	skipped  o.Maybe[string]
	output   string
	duration time.Duration
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
	SystemOut   string               `xml:"system-out,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

// NewJUnitReporter creates a JUnitReporter that will write to filePath. The properties are
// copied into every suite, which is a convenient place to record the run's configuration.
func NewJUnitReporter(filePath string, properties map[string]string) *JUnitReporter {
	return &JUnitReporter{
		filePath:   filePath,
		properties: properties,
		steps:      make(map[string]jUnitStepStatus),
	}
}

func (j *JUnitReporter) SequenceStarted(string) {}

func (j *JUnitReporter) StepStarted(StepID) {}

func (j *JUnitReporter) StepFinished(id StepID, result StepResult, debugOutput framework.CapturedOutput) {
	status := jUnitStepStatus{
		output:   debugOutput.ToString(""),
		duration: result.Duration,
	}
	if result.Failed {
		status.failure = o.Some(result.Detail)
	}
	j.record(id, status)
}

func (j *JUnitReporter) StepSkipped(id StepID, reason string) {
	j.record(id, jUnitStepStatus{skipped: o.Some(reason)})
}

func (j *JUnitReporter) record(id StepID, status jUnitStepStatus) {
	if _, seen := j.steps[id.String()]; !seen {
		j.stepIDs = append(j.stepIDs, id)
	}
	j.steps[id.String()] = status
}

func (j *JUnitReporter) EndLog(Results) error {
	fmt.Printf("Writing JUnit data to %s\n", j.filePath)

	data, err := j.render()
	if err != nil {
		return err
	}
	return os.WriteFile(j.filePath, data, 0644) //nolint:gosec
}

func (j *JUnitReporter) render() ([]byte, error) {
	var properties []jUnitXMLProperty
	for _, name := range sortedKeys(j.properties) {
		properties = append(properties, jUnitXMLProperty{Name: name, Value: j.properties[name]})
	}

	var doc jUnitXMLDocument
	for _, sequence := range sequenceNames(j.stepIDs) {
		suite := jUnitXMLTestSuite{
			Name:       fmt.Sprintf("relay conformance: %s", sequence),
			Properties: properties,
		}
		total := time.Duration(0)
		for _, id := range j.stepIDs {
			if id.Sequence() != sequence {
				continue
			}
			status := j.steps[id.String()]
			suite.Tests++
			total += status.duration

			testCase := jUnitXMLTestCase{
				Classname: sequence,
				Name:      id.Label(),
				Time:      jUnitDurationString(status.duration),
				SystemOut: status.output,
			}
			if status.skipped.IsDefined() {
				suite.Skipped++
				testCase.SkipMessage = &jUnitXMLSkipMessage{Message: status.skipped.Value()}
			}
			if status.failure.IsDefined() {
				suite.Failures++
				testCase.Failure = &jUnitXMLFailure{
					Message:  status.failure.Value(),
					Type:     "failure",
					Contents: status.output,
				}
			}
			suite.TestCases = append(suite.TestCases, testCase)
		}
		suite.Time = jUnitDurationString(total)
		doc.Suites = append(doc.Suites, suite)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func sequenceNames(ids []StepID) []string {
	var ret []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if name := id.Sequence(); !seen[name] {
			ret = append(ret, name)
			seen[name] = true
		}
	}
	return ret
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
