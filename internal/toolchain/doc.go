// Package toolchain drives the external compiler, test engine and API
// documentation tool through configured command templates.
//
// Templates are argument lists. Placeholders inside an argument ({output},
// {classpath}, {source}, {module}, {report}, {target}) are substituted; an
// argument that is exactly @sources, @tests or @params is replaced by the
// corresponding list. Commands run synchronously with no timeout; when the
// context is canceled the whole process group is killed.
package toolchain
